package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

func newTranslateCommand() *cobra.Command {
	var (
		from   string
		to     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "translate TEXT",
		Short: "翻译一段文本",
		Args:  cobra.ExactArgs(1),
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

			result, err := a.service.Translate(ctx, &translation.Request{
				TenantID:       tenantID,
				Text:           args[0],
				SourceLanguage: from,
				TargetLanguage: to,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			_, err = fmt.Fprintln(out, result.Text)
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "ja", "源语言")
	cmd.Flags().StringVar(&to, "to", "en", "目标语言")
	cmd.Flags().BoolVar(&asJSON, "json", false, "输出完整结果 (来源、缓存键、质量分)")
	return cmd
}

func newBatchCommand() *cobra.Command {
	var (
		from      string
		to        string
		batchSize int
		output    string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "按行批量翻译文件，- 表示标准输入",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := readLines(cmd, args[0])
			if err != nil {
				return err
			}

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

			req := &translation.BatchRequest{
				TenantID:       tenantID,
				Texts:          texts,
				SourceLanguage: from,
				TargetLanguage: to,
				BatchSize:      batchSize,
			}
			if !quiet && len(texts) > 0 {
				bar, err := pterm.DefaultProgressbar.
					WithTotal(len(texts)).
					WithTitle("翻译进度").
					WithWriter(cmd.ErrOrStderr()).
					Start()
				if err != nil {
					return err
				}
				prev := 0
				req.Progress = func(done, total int) {
					bar.Add(done - prev)
					prev = done
				}
				defer func() {
					_, _ = bar.Stop()
				}()
			}

			results, err := a.service.TranslateBatch(ctx, req)
			if err != nil && results == nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return fmt.Errorf("failed to create output file: %w", createErr)
				}
				defer f.Close()
				w = f
			}
			bw := bufio.NewWriter(w)
			for _, line := range results {
				if _, writeErr := fmt.Fprintln(bw, line); writeErr != nil {
					return writeErr
				}
			}
			if flushErr := bw.Flush(); flushErr != nil {
				return flushErr
			}
			// 取消时已输出部分结果，仍返回错误
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "ja", "源语言")
	cmd.Flags().StringVar(&to, "to", "en", "目标语言")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "每组并发数量 (默认 translation.batch_size)")
	cmd.Flags().StringVar(&output, "output", "", "输出文件 (默认标准输出)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不显示进度条")
	return cmd
}

// readLines 读取文件的所有行，去掉行尾的 \r
func readLines(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}
