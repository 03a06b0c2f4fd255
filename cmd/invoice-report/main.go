package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/config"
	commonhttp "github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
	"github.com/sngm3741/guide-ops/api/internal/server"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reportOptions struct {
	month  string
	format string
}

func parseFlags() reportOptions {
	month := flag.String("month", "", "対象月 (YYYY-MM)。未指定なら前月")
	format := flag.String("format", "table", "出力形式 (table|json)")
	flag.Parse()
	return reportOptions{month: strings.TrimSpace(*month), format: strings.TrimSpace(*format)}
}

func main() {
	opts := parseFlags()
	if opts.format != "table" && opts.format != "json" {
		log.Fatalf("-format は table か json を指定してください: %q", opts.format)
	}

	config.LoadEnvFile()
	cfg, err := config.LoadFromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		log.Fatalf("営業日設定が不正です: %v", err)
	}

	year, month, err := targetMonth(opts.month, resolver, time.Now())
	if err != nil {
		log.Fatalf("対象月が不正です: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+commonhttp.ReportTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("MongoDB 切断に失敗: %v", err)
		}
	}()

	services := server.NewServices(cfg, client.Database(cfg.MongoDatabase), resolver)
	invoices, err := services.Invoices.AllStores(ctx, year, month)
	if err != nil {
		log.Fatalf("請求書の集計に失敗しました: %v", err)
	}

	if opts.format == "json" {
		err = renderJSON(os.Stdout, invoices)
	} else {
		err = renderTable(os.Stdout, year, month, invoices)
	}
	if err != nil {
		log.Fatalf("出力に失敗しました: %v", err)
	}
}

// targetMonth は -month を解釈する。空なら now の前月。
func targetMonth(raw string, resolver *domain.Resolver, now time.Time) (int, int, error) {
	if raw != "" {
		return domain.ParseMonth(raw)
	}
	local := now.In(resolver.Zone())
	prev := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, resolver.Zone()).AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month()), nil
}

func renderJSON(w io.Writer, invoices []application.StoreInvoice) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(commonhttp.NewInvoiceResponses(invoices))
}

func renderTable(w io.Writer, year, month int, invoices []application.StoreInvoice) error {
	fmt.Fprintf(w, "%04d-%02d 請求一覧 (%d 店舗)\n", year, month, len(invoices))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "店舗\t来店\tパネル\t紹介料\t不足\tペナルティ\t小計\t税\t合計\t")

	grand := 0
	for _, inv := range invoices {
		bill := inv.Invoice
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			inv.StoreName,
			bill.GuestCount,
			panelLabel(bill),
			bill.ReferralCharge,
			bill.ShortfallCharge,
			bill.UnderGuaranteePenalty,
			bill.Subtotal,
			bill.Tax,
			bill.Total,
		)
		grand += bill.Total
	}
	fmt.Fprintf(tw, "合計\t\t\t\t\t\t\t\t%d\t\n", grand)
	return tw.Flush()
}

func panelLabel(bill domain.Invoice) string {
	if bill.IsPanelFeeWaived {
		return "免除"
	}
	return fmt.Sprintf("%d", bill.PanelFee)
}
