package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/evaltrans/pkg/providers/stats"
	"github.com/nerdneilsfield/evaltrans/pkg/quality"
	"github.com/nerdneilsfield/evaltrans/pkg/report"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

func newStatsCommand() *cobra.Command {
	var (
		format string
		lowest int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看租户的译文缓存统计和后端调用统计",
		Long: `查看租户的译文缓存统计，包括:
- 总数、人工确认数量、平均质量分
- 质量分档、语言对、来源分布
- 质量最低的若干条译文
- 翻译后端的调用统计 (需要配置 translation.stats_path)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.service.Statistics(ctx, tenantID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"statistics": summary,
					"backends":   a.stats.Snapshot(),
				})
			}

			renderStatistics(out, tenantID, summary)

			if lowest > 0 {
				entries, err := a.service.Entries(ctx, tenantID)
				if err != nil {
					return err
				}
				worst := report.Apply(entries, report.Filter{Bucket: report.BucketUnverified}, a.thresholds())
				if len(worst) > lowest {
					worst = worst[:lowest]
				}
				renderEntries(out, worst, a.thresholds())
			}

			renderBackendStats(out, a.stats.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "输出格式 (table, json)")
	cmd.Flags().IntVar(&lowest, "lowest", 10, "显示质量最低的未确认译文数量，0 表示不显示")
	return cmd
}

// renderStatistics 输出缓存统计
func renderStatistics(w io.Writer, tenant string, s *translation.Statistics) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "📊 Translation Cache Statistics (%s)\n", tenant)
	title.Fprintln(w, strings.Repeat("=", 50))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRow(table.Row{"Total Translations", s.TotalTranslations})
	tw.AppendRow(table.Row{"Manually Verified", s.ManualVerified})
	tw.AppendRow(table.Row{"Average Quality", qualityString(s.AverageQuality)})
	tw.AppendRow(table.Row{"Expired", s.Expired})
	tw.AppendSeparator()
	for _, bucket := range []string{quality.BucketVerified, quality.BucketHigh, quality.BucketMedium, quality.BucketLow} {
		tw.AppendRow(table.Row{"Bucket " + bucket, s.QualityBuckets[bucket]})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
	fmt.Fprintln(w)

	renderCounts(w, "🌍 Language Pairs", s.LanguagePairCounts)
	renderCounts(w, "🔧 Services", s.ServiceCounts)
}

// renderCounts 按数量降序输出计数表
func renderCounts(w io.Writer, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	color.New(color.FgMagenta, color.Bold).Fprintln(w, heading)

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	for _, k := range keys {
		tw.AppendRow(table.Row{k, counts[k]})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
	fmt.Fprintln(w)
}

// renderEntries 输出译文列表，文本按显示宽度截断
func renderEntries(w io.Writer, entries []translation.CacheEntry, t report.Thresholds) {
	if len(entries) == 0 {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintln(w, "⚠️  Lowest Quality Translations")

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Key", "Pair", "Source", "Translation", "Score", "Bucket"})
	for i := range entries {
		e := &entries[i]
		tw.AppendRow(table.Row{
			shortKey(e.CacheKey),
			e.LanguagePair(),
			truncate(e.SourceText, 24),
			truncate(e.TranslatedText, 32),
			qualityString(e.QualityScore),
			t.Bucket(e),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
	tw.SetStyle(table.StyleLight)
	tw.Render()
	fmt.Fprintln(w)
}

// renderBackendStats 输出后端调用统计
func renderBackendStats(w io.Writer, snapshot []stats.BackendStats) {
	if len(snapshot) == 0 {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintln(w, "⚡ Backend Statistics")

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Backend", "Requests", "Success", "Avg Latency", "Last Error"})
	for _, s := range snapshot {
		tw.AppendRow(table.Row{
			s.Backend,
			s.TotalRequests,
			fmt.Sprintf("%.1f%%", s.SuccessRate()),
			s.AverageLatency.Round(time.Millisecond).String(),
			truncate(s.LastError, 40),
		})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func qualityString(score float64) string {
	s := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 0.8:
		return color.GreenString(s)
	case score >= 0.5:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// truncate 按终端显示宽度截断，CJK 字符占两列
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "…")
}
