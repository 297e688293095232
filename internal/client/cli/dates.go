package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newDatesCommand(a *App) *cobra.Command {
	var days, months, years int

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Print YYYYMMDD values used as procedure parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.dates
			now := h.Now()
			data := [][]string{
				{"Name", "Value", "Macro"},
				{"today", h.Today(), "@today"},
				{"first weekday of month", h.FirstWeekdayOfMonth(now), "@first"},
				{"last day of month", h.LastDayOfMonth(now), "@last"},
				{strconv.Itoa(days) + " days ago", h.DaysAgo(days), "@days:" + strconv.Itoa(days)},
				{strconv.Itoa(months) + " months ago", h.MonthsAgo(months), "@months:" + strconv.Itoa(months)},
				{strconv.Itoa(years) + " years ago", h.YearsAgo(years), "@years:" + strconv.Itoa(years)},
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, table)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&days, "days", 7, "days back")
	f.IntVar(&months, "months", 1, "months back")
	f.IntVar(&years, "years", 1, "years back")
	return cmd
}
