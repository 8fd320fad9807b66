package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mctn/comtracker/internal/config"
	"github.com/mctn/comtracker/internal/datasource"
	"github.com/mctn/comtracker/internal/render"
	"github.com/mctn/comtracker/internal/tracker"
	"github.com/mctn/comtracker/pkg/models"
	"github.com/mctn/comtracker/pkg/utils"
)

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search mentions and print the articles with their statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, criteria := searchFlags(cmd, args)
		tr := tracker.FromConfig(cfg, log)
		defer tr.Close()

		res, err := tr.Search(cmd.Context(), service, criteria)
		if err != nil {
			return searchError(err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		width, _ := cmd.Flags().GetInt("width")
		fmt.Print(render.ArticleTable(res.Articles, width))
		fmt.Println()
		printSummary(res)
		return nil
	},
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report [query]",
	Short: "Search mentions and stream the AI monitoring report",
	Long: `Search mentions, then stream the AI report to stdout as it is written.
When the report service fails, the computed statistics are shown instead.
Use --html or --md to also save the full report with charts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, criteria := searchFlags(cmd, args)
		tr := tracker.FromConfig(cfg, log)
		defer tr.Close()

		res, err := tr.Search(cmd.Context(), service, criteria)
		if err != nil {
			return searchError(err)
		}
		printSummary(res)
		fmt.Println()

		var final *models.Report
		if tr.ReportsEnabled() {
			// The sink runs on the streaming goroutine; final is read
			// only after Wait.
			tr.StartReport(cmd.Context(), res, func(ev tracker.ReportEvent) {
				switch ev.Type {
				case tracker.EventToken:
					fmt.Print(ev.Token)
				default:
					final = ev.Report
				}
			})
			tr.Wait()
			fmt.Println()
		} else {
			fmt.Fprintln(os.Stderr, "Report stream disabled (report.enabled=false)")
		}
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}

		in := render.Input{
			Service:     res.Service,
			Criteria:    res.Criteria,
			Articles:    res.Articles,
			Stats:       res.Stats,
			Insights:    res.Insights,
			Failures:    failureMessages(res.Failures),
			Report:      final,
			Elapsed:     res.Elapsed,
			GeneratedAt: time.Now(),
		}
		if final != nil && final.Kind == models.ReportStats {
			fmt.Print(render.Text(in))
		}

		if path, _ := cmd.Flags().GetString("html"); path != "" {
			doc, err := render.HTML(in)
			if err != nil {
				return err
			}
			if err := writeOutput(path, doc); err != nil {
				return err
			}
		}
		if path, _ := cmd.Flags().GetString("md"); path != "" {
			if err := writeOutput(path, render.Markdown(in)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{searchCmd, reportCmd} {
		f := cmd.Flags()
		f.StringP("service", "s", config.AllSources, "source to search, or \"all\"")
		f.StringP("query", "q", "", "search query (also accepted as argument)")
		f.StringP("exclude", "x", "", "words to exclude, comma or space separated")
		f.String("country", "", "two-letter country code, e.g. sn")
		f.String("lang", "", "language code, e.g. fr")
		f.String("start", "", "start date YYYY-MM-DD (inclusive)")
		f.String("end", "", "end date YYYY-MM-DD (inclusive)")
	}
	searchCmd.Flags().Bool("json", false, "print the result as JSON")
	searchCmd.Flags().Int("width", 120, "table width in columns")
	reportCmd.Flags().String("html", "", "write an HTML report with charts to this file")
	reportCmd.Flags().String("md", "", "write a Markdown report to this file")
}

func searchFlags(cmd *cobra.Command, args []string) (string, models.SearchCriteria) {
	f := cmd.Flags()
	service, _ := f.GetString("service")
	query, _ := f.GetString("query")
	if len(args) == 1 {
		query = args[0]
	}
	exclude, _ := f.GetString("exclude")
	country, _ := f.GetString("country")
	lang, _ := f.GetString("lang")
	start, _ := f.GetString("start")
	end, _ := f.GetString("end")

	return strings.ToLower(strings.TrimSpace(service)), models.SearchCriteria{
		Query:   query,
		Exclude: exclude,
		Country: country,
		Lang:    lang,
		Start:   start,
		End:     end,
	}
}

// searchError turns a single-source failure into its user-facing message.
func searchError(err error) error {
	var se *datasource.SourceError
	if errors.As(err, &se) {
		return errors.New(datasource.UserMessage(se.Err, se.Label))
	}
	return err
}

func failureMessages(failures []*datasource.SourceError) []string {
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.Label + " : " + datasource.UserMessage(f.Err, f.Label)
	}
	return out
}

func printSummary(res *tracker.Result) {
	fmt.Printf("%d mention(s) sur %d article(s) récupéré(s) en %s\n",
		len(res.Articles), res.Fetched, utils.FormatDuration(res.Elapsed))
	for _, msg := range failureMessages(res.Failures) {
		fmt.Printf("  ⚠ %s\n", msg)
	}
	if len(res.Stats.TopSources) > 0 {
		parts := make([]string, len(res.Stats.TopSources))
		for i, s := range res.Stats.TopSources {
			parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Count)
		}
		fmt.Printf("Sources : %s\n", strings.Join(parts, ", "))
	}
	s := res.Stats.Sentiment
	fmt.Printf("Sentiment : +%d / =%d / -%d\n", s.Positive, s.Neutral, s.Negative)
}

func writeOutput(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	return nil
}
