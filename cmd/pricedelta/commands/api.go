package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pricedelta/internal/api"
	"github.com/wonny/pricedelta/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                   - Health check
  POST /api/stocks/update        - 설정된 종목 일괄 갱신 (?symbols=AAPL,MSFT)
  GET  /api/stocks/raw?symbol=   - Alpha Vantage 원본 응답 (기본 IBM)
  GET  /api/stocks               - 저장된 종목 목록
  GET  /api/stocks/{symbol}      - 저장된 종목 조회

Example:
  go run ./cmd/pricedelta api
  go run ./cmd/pricedelta api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== pricedelta API Server ===")

	d, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	if !d.alphaVantage.HasAPIKey() {
		d.log.Warn("ALPHA_VANTAGE_KEY is not set; update and raw endpoints will fail")
	}

	stockHandler := handlers.NewStockHandler(d.orchestrator, d.alphaVantage, d.repo, handlers.StockHandlerConfig{
		Symbols:      d.cfg.Symbols,
		BatchTimeout: d.cfg.Batch.Timeout,
	}, d.log)

	router := api.NewRouter(stockHandler, d.db, d.log)
	server := api.New(d.cfg, d.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	d.log.Info("API server started successfully")
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
