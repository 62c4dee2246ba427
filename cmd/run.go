package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/pkg/fileurl"

	"github.com/google/uuid"
	"github.com/gookit/goutil/fsutil"
	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	dir     string // 项目根目录
	port    string // 启动端口
	runMode string // 启动模式
	config  string // 指定要使用的配置文件路径
}

// resolveConfig 按顺序查找配置文件，都不存在时写出默认配置
func resolveConfig(runEnv *runFlags) error {
	if len(runEnv.dir) > 0 {
		if err := os.Chdir(runEnv.dir); err != nil {
			bootstrapLogger.Error("failed to change the current working directory", zap.Error(err))
			return err
		}
		bootstrapLogger.Info("working directory changed", zap.String("dir", runEnv.dir))
	}
	if len(runEnv.config) > 0 {
		return nil
	}

	for _, p := range []string{"config/config-dev.yaml", "config.yaml", "config/config.yaml"} {
		if fileurl.IsExist(p) {
			runEnv.config = p
			return nil
		}
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	runEnv.config = "config/config.yaml"

	content := strings.Replace(configDefault, `auth-token-key: ""`, `auth-token-key: "`+strings.ReplaceAll(uuid.NewString(), "-", "")+`"`, 1)

	if err := fsutil.MkParentDir(runEnv.config); err != nil {
		bootstrapLogger.Error("config file auto create error", zap.Error(err))
		return err
	}
	if err := os.WriteFile(runEnv.config, []byte(content), 0o644); err != nil {
		bootstrapLogger.Error("config file auto create writing error", zap.Error(err))
		return err
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", runEnv.config))
	return nil
}

// watchConfig 配置文件被写入时向 reload 发送信号
func watchConfig(ctx context.Context, path string, reload chan<- struct{}) {
	w := watcher.New()

	// 每个监听周期至多接收 1 个事件
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write)

	go func() {
		for {
			select {
			case event := <-w.Event:
				bootstrapLogger.Info("config watcher change", zap.String("event", event.Op.String()), zap.String("file", event.Path))
				select {
				case reload <- struct{}{}:
				default:
				}
			case err := <-w.Error:
				bootstrapLogger.Error("config watcher error", zap.Error(err))
			case <-w.Closed:
				return
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()

	if err := w.Add(path); err != nil {
		bootstrapLogger.Error("config watcher file error", zap.Error(err))
		return
	}
	if err := w.Start(time.Second * 5); err != nil {
		bootstrapLogger.Error("config watcher start error", zap.Error(err))
	}
}

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run service",
		Run: func(cmd *cobra.Command, args []string) {
			if err := resolveConfig(runEnv); err != nil {
				return
			}

			root, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reload := make(chan struct{}, 1)
			go watchConfig(root, runEnv.config, reload)

			for {
				s, err := NewServer(runEnv)
				if err != nil {
					bootstrapLogger.Error("api service start err", zap.Error(err))
					// 配置有误时等待下一次修改
					select {
					case <-reload:
						continue
					case <-root.Done():
						return
					}
				}

				ctx, cancel := context.WithCancel(root)
				done := make(chan error, 1)
				go func() { done <- s.Run(ctx) }()

				select {
				case <-reload:
					s.logger.Info("config changed, restarting service")
					cancel()
					<-done
					continue
				case <-root.Done():
					s.logger.Info("Received shutdown signal, initiating graceful shutdown...")
					cancel()
					if err := <-done; err != nil {
						s.logger.Error("Shutdown completed with error", zap.Error(err))
					} else {
						s.logger.Info("Service has been shut down gracefully.")
					}
					return
				case err := <-done:
					cancel()
					if err != nil {
						s.logger.Error("service stopped", zap.Error(err))
					}
					return
				}
			}
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.port, "port", "p", "", "run port")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
	fs.StringVarP(&runEnv.config, "config", "c", "", "config file")

}
