package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/pkg/redis"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol>",
	Short: "단일 종목 조회 (저장하지 않음)",
	Long: `한 종목의 일봉을 조회해 기간별 기준가와 등락률을 출력합니다.
--raw 를 주면 Alpha Vantage 응답을 가공 없이 출력합니다.

Example:
  go run ./cmd/pricedelta fetch AAPL
  go run ./cmd/pricedelta fetch IBM --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var fetchRaw bool

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "원본 응답 출력")
}

func runFetch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rc.Close()

	client := newAlphaVantageClient(cfg, log, rc)

	if fetchRaw {
		raw, err := client.FetchDailyRaw(ctx, args[0])
		if err != nil {
			return err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return fmt.Errorf("format payload: %w", err)
		}
		fmt.Fprintln(out, pretty.String())
		return nil
	}

	series, err := client.FetchSeries(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := pricing.Compare(series)
	if err != nil {
		return err
	}

	PrintLookback(out, series.Name(), result)
	return nil
}
