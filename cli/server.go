package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/desk-next/deskcli/config"
	"github.com/desk-next/deskcli/daemon"
	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/queue"
	"github.com/desk-next/deskcli/server"
	"github.com/desk-next/deskcli/sysinfo"
	"github.com/desk-next/deskcli/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the deskcli action server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the deskcli action server",
	Long:  `Starts the REST server that serializes desktop actions.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// GetBool/GetString cannot fail for defined flags
		configPath, _ := cmd.Flags().GetString("config")
		listenAddr, _ := cmd.Flags().GetString("listen")
		enableCORS, _ := cmd.Flags().GetBool("cors")
		isDaemon, _ := cmd.Flags().GetBool("daemon")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if listenAddr == "" {
			listenAddr = cfg.Addr()
		}
		if enableCORS {
			cfg.EnableCORS = true
		}

		if isDaemon && !daemon.IsChild() {
			_, err := daemon.Daemonize()
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", listenAddr)
			return nil
		}

		return runServer(cfg, listenAddr)
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized deskcli server",
	Long:  `Connects to the server and sends a shutdown request.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = config.Default().Addr()
		}

		if err := daemon.KillServer(addr); err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func runServer(cfg *config.Config, listenAddr string) error {
	driver, err := display.NewX11()
	if err != nil {
		return err
	}

	info, err := sysinfo.Collect(driver)
	if err != nil {
		return err
	}
	utils.Info("display %dx%d on %s %s", info.DisplayWidth, info.DisplayHeight, info.OSType, info.OSVersion)

	q, err := queue.New(driver, queue.Config{
		Depth:           cfg.QueueDepth,
		ActionTimeout:   cfg.ActionTimeout,
		ActionDelay:     cfg.ActionDelay,
		ScreenshotDelay: cfg.ScreenshotDelay,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	srv := server.New(q, info, cfg.EnableCORS)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		utils.Info("received %v, shutting down", sig)
		srv.Shutdown()
	}()

	return srv.Start(listenAddr)
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	serverStartCmd.Flags().String("listen", "", "Address to listen on (e.g., 'localhost:8255' or '0.0.0.0:8255')")
	serverStartCmd.Flags().String("config", "", "Path to an ini config file")
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")

	serverKillCmd.Flags().String("listen", "", "Address of server to kill")
}
