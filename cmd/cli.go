package cmd

import (
	"context"
	"fmt"
	"os"

	internalApp "github.com/haierkeys/fast-note-image-uploader/internal/app"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliFlags 一次性命令共用的参数
type cliFlags struct {
	dir    string
	config string
}

func (f *cliFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&f.config, "config", "c", "", "config file")
}

// withApp 加载配置并创建 App Container，执行 fn 后关闭
func withApp(f *cliFlags, fn func(ctx context.Context, a *internalApp.App) error) error {
	runEnv := &runFlags{dir: f.dir, config: f.config}
	if err := resolveConfig(runEnv); err != nil {
		return err
	}
	cfg, _, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// 一次性命令只在控制台输出警告
	cfg.Log.File = ""
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}

	s := &Server{config: cfg}
	if err := initLoggerWithConfig(s, cfg); err != nil {
		return err
	}
	if err := initStorageWithConfig(cfg); err != nil {
		return err
	}
	a, err := internalApp.NewApp(cfg, s.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetContextTimeout())
	defer cancel()

	runErr := fn(ctx, a)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("app shutdown", zap.Error(err))
	}
	return runErr
}

// printJSON 以缩进 JSON 输出到 stdout
func printJSON(v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
