package app

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	listCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// list prints the registered tasks in registration order.
func (a *App) list() error {
	rows := make([][]string, 0, len(a.registry.ListTasks()))
	for _, id := range a.registry.ListTasks() {
		rec, err := a.registry.Record(id)
		if err != nil {
			return stageError(StageRegistry, err)
		}
		play := "no"
		if rec.PlayEnvCfg != nil {
			play = "yes"
		}
		rows = append(rows, []string{id, rec.RunnerKind, play})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("TASK", "RUNNER", "PLAY").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return listCellStyle
		})

	_, err := fmt.Fprintln(a.outW, t.Render())
	return err
}
