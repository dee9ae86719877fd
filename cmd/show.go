package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/usecase/provision"
)

var (
	showTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	showBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	showGivenStyle = lipgloss.NewStyle().Bold(true)
	showBlankStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	showTileStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)
	showMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

var showCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Render the cached puzzles for a date (default today, UTC)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		date := puzzle.DateOf(time.Now())
		if len(args) == 1 {
			parsed, err := puzzle.ParseDate(args[0])
			if err != nil {
				return err
			}
			date = parsed
		}
		withSolution, _ := cmd.Flags().GetBool("solution")

		found, err := deps.Provision.Lookup(ctx, date.String())
		if err != nil && !errors.Is(err, puzzle.ErrPuzzlesNotFound) {
			return errs.Wrap(err, "lookup puzzles")
		}
		statuses, err := deps.Provision.Status(ctx, date)
		if err != nil {
			return errs.Wrap(err, "read puzzle status")
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderPuzzles(date, found, statuses, withSolution)); err != nil {
			return errs.Wrap(err, "write show output")
		}
		return nil
	}),
}

func renderPuzzles(date puzzle.Date, found provision.Puzzles, statuses []provision.KindStatus, withSolution bool) string {
	sections := []string{showTitleStyle.Render("Puzzles for " + date.String())}

	if found.Sudoku != nil {
		boards := []string{showBoxStyle.Render(renderSudokuGrid(found.Sudoku.Puzzle))}
		if withSolution {
			boards = append(boards, "  ", showBoxStyle.Render(renderSudokuGrid(found.Sudoku.Solution)))
		}
		sections = append(sections,
			fmt.Sprintf("Sudoku (%d givens)", found.Sudoku.Givens()),
			lipgloss.JoinHorizontal(lipgloss.Top, boards...),
		)
	} else {
		sections = append(sections, showMutedStyle.Render("Sudoku: not cached"))
	}

	if found.Wordle != nil {
		word := *found.Wordle
		if !withSolution {
			word = strings.Repeat("?", len(word))
		}
		sections = append(sections, "Wordle", renderWordleTiles(word))
	} else {
		sections = append(sections, showMutedStyle.Render("Wordle: not cached"))
	}

	for _, status := range statuses {
		line := fmt.Sprintf("%s record: missing", status.Kind)
		if status.Stored {
			line = fmt.Sprintf("%s record: stored %s", status.Kind, status.CreatedAt)
		}
		sections = append(sections, showMutedStyle.Render(line))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderSudokuGrid(cells string) string {
	if len(cells) != puzzle.GridCells {
		return showMutedStyle.Render(fmt.Sprintf("malformed grid (%d cells)", len(cells)))
	}

	var b strings.Builder
	for row := 0; row < puzzle.SudokuSide; row++ {
		if row > 0 && row%3 == 0 {
			b.WriteString("------+-------+------\n")
		}
		for col := 0; col < puzzle.SudokuSide; col++ {
			if col > 0 && col%3 == 0 {
				b.WriteString("| ")
			}
			cell := cells[row*puzzle.SudokuSide+col]
			if cell == puzzle.BlankCell {
				b.WriteString(showBlankStyle.Render("·"))
			} else {
				b.WriteString(showGivenStyle.Render(string(cell)))
			}
			if col < puzzle.SudokuSide-1 {
				b.WriteByte(' ')
			}
		}
		if row < puzzle.SudokuSide-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderWordleTiles(word string) string {
	tiles := make([]string, 0, len(word))
	for _, r := range word {
		tiles = append(tiles, showTileStyle.Render(string(r)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("solution", false, "Also reveal the sudoku solution and the wordle answer")
}
