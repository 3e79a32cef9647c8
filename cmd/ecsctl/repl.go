package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// newReplCommand starts an interactive shell over a fresh world: create
// entities, set their Position/Name, list them, save a snapshot.
func newReplCommand() *cobra.Command {
	var savePath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively build and inspect a world",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(savePath)
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "world.txt", "path `quit` saves the world to")
	return cmd
}

func runRepl(savePath string) error {
	w, reg := newWorldWithDemoTypes()
	defer w.Close()
	posPool, namePool := poolForPosition(w), poolForName(w)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("ecsctl repl: create <name> <x> <y> | list | quit")
	for {
		input, err := line.Prompt("ecs> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err.Error() == "EOF" {
				return nil
			}
			return err
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "create":
			if len(fields) != 4 {
				fmt.Println("usage: create <name> <x> <y>")
				continue
			}
			x, errX := strconv.ParseFloat(fields[2], 64)
			y, errY := strconv.ParseFloat(fields[3], 64)
			if errX != nil || errY != nil {
				fmt.Println("x and y must be numbers")
				continue
			}
			e, err := w.CreateEntity()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			_ = posPool.SetAny(e, Position{X: x, Y: y})
			_ = namePool.SetAny(e, Name{Value: fields[1]})
			fmt.Printf("created %v\n", e)
		case "list":
			for _, e := range w.AliveEntities() {
				name := "<unnamed>"
				if namePool.Has(e) {
					name = namePool.GetAny(e).(Name).Value
				}
				pos := Position{}
				if posPool.Has(e) {
					pos = posPool.GetAny(e).(Position)
				}
				fmt.Printf("%v: %s @ (%.2f, %.2f)\n", e, name, pos.X, pos.Y)
			}
		case "quit", "exit":
			return saveText(w, reg, savePath)
		default:
			fmt.Println("unknown command")
		}
	}
}
