package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pricedelta/pkg/database"
	"github.com/wonny/pricedelta/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 및 연결 점검",
	Long: `설정과 외부 연결 상태를 점검합니다.

이 명령어는:
- config 로드 및 검증
- PostgreSQL Ping / Health Check / Connection Pool 통계
- Redis 연결 (REDIS_ENABLED=true 인 경우)
- Alpha Vantage API 키 설정 여부

Example:
  go run ./cmd/pricedelta check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintHeader(out, "pricedelta Connection Check")

	cfg, _, err := loadConfig()
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue(out, "Database", redactURL(cfg.Database.URL), 10)
	PrintKeyValue(out, "Symbols", strings.Join(cfg.Symbols, ", "), 10)
	PrintKeyValue(out, "Timezone", cfg.Timezone, 10)
	PrintKeyValue(out, "Schedule", cfg.UpdateSchedule, 10)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	PrintSeparator(out)
	db, err := database.New(ctx, cfg)
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError(out, fmt.Sprintf("Health check failed: %v", err))
		return err
	}
	PrintSuccess(out, fmt.Sprintf("Database healthy (%v)", status.ResponseTime))
	PrintKeyValue(out, "Max", fmt.Sprintf("%d", status.Stats.MaxConns), 10)
	PrintKeyValue(out, "Total", fmt.Sprintf("%d", status.Stats.TotalConns), 10)
	PrintKeyValue(out, "Idle", fmt.Sprintf("%d", status.Stats.IdleConns), 10)
	PrintKeyValue(out, "Acquired", fmt.Sprintf("%d", status.Stats.AcquiredConns), 10)

	PrintSeparator(out)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	defer rc.Close()

	if rc.Enabled() {
		PrintSuccess(out, fmt.Sprintf("Redis connected (%s)", rc.Addr()))
	} else {
		PrintWarning(out, "Redis disabled; caching and shared rate limiting are off")
	}

	if cfg.AlphaVantage.APIKey == "" {
		PrintWarning(out, "ALPHA_VANTAGE_KEY is not set")
	} else {
		PrintSuccess(out, "Alpha Vantage API key configured")
	}

	PrintDoubleSeparator(out)
	return nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
