package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jrsteele09/go-publish-agent/internal/config"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
	"github.com/jrsteele09/go-publish-agent/schedule"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	scheduleFile   string
	scheduleOutput string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect the schedule document",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the schedule document with each entry's next run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := scheduleFile
		if path == "" {
			env, err := config.NewEnvVars()
			if err != nil {
				return err
			}
			path = env.GetScheduleFile()
		}

		doc, _, err := schedule.NewFileStore(path).Read()
		if err != nil {
			return err
		}
		return printSchedule(cmd.OutOrStdout(), doc, scheduleOutput, time.Now())
	},
}

func init() {
	scheduleShowCmd.Flags().StringVarP(&scheduleFile, "file", "f", "", "schedule file (defaults to $DATA_FOLDER/schedule.json)")
	scheduleShowCmd.Flags().StringVarP(&scheduleOutput, "output", "o", "table", "output format: table, json or yaml")
	scheduleCmd.AddCommand(scheduleShowCmd)
}

func printSchedule(w io.Writer, doc schedule.Document, format string, now time.Time) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "table":
		return printScheduleTable(w, doc, now)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printScheduleTable(w io.Writer, doc schedule.Document, now time.Time) error {
	fmt.Fprintf(w, "%s %s  %s %d  %s %s\n",
		text.FgHiBlue.Sprint("Persona:"), doc.Config.Persona,
		text.FgHiBlue.Sprint("Max length:"), doc.Config.MaxLength,
		text.FgHiBlue.Sprint("Timezone:"), doc.Config.Timezone)

	if len(doc.Schedule) == 0 {
		fmt.Fprintln(w, text.FgYellow.Sprint("No entries scheduled"))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"TIME", "TYPE", "TIMEZONE", "NEXT RUN", "INSTRUCTION"})
	for _, key := range utils.SortedKeys(doc.Schedule) {
		entry := doc.Schedule[key]
		tz := entry.Timezone
		if tz == "" {
			tz = doc.Config.Timezone
		}
		if tz == "" {
			tz = "UTC"
		}
		t.AppendRow(table.Row{key, entry.Type, tz, nextRun(key, tz, now), utils.Truncate(entry.Instruction, 60)})
	}
	t.Render()
	return nil
}

// nextRun evaluates the trigger's cron expression the same way the registry does.
func nextRun(key, tz string, now time.Time) string {
	spec, err := schedule.Trigger{TimeKey: key, Timezone: tz}.Spec()
	if err != nil {
		return text.FgRed.Sprint("invalid time")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return text.FgRed.Sprint("invalid timezone")
	}
	next := sched.Next(now)
	loc, _ := time.LoadLocation(tz)
	return next.In(loc).Format("2006-01-02 15:04 MST")
}
