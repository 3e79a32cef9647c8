// Command ecsctl is a small operator tool over the ecs core: build a world
// from a config file, dump/load it as a text snapshot, or poke at it
// interactively (spec.md §6's "Public API surface" exercised through a
// real client).
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/vectorstate/ecs"
	"github.com/vectorstate/ecs/serialize"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ecsctl",
		Short: "Inspect and snapshot ecs worlds",
	}
	root.AddCommand(newCreateCommand(), newDumpCommand(), newLoadCommand(), newInspectCommand(), newReplCommand())
	return root
}

func newWorldWithDemoTypes() (*ecs.World, *serialize.Registry) {
	w := ecs.NewWorld(ecs.Options{MaxEntities: 1 << 16})
	return w, newRegistry(w)
}

func poolForPosition(w *ecs.World) ecs.PoolAccessor { return ecs.EnsurePool[Position](w) }
func poolForName(w *ecs.World) ecs.PoolAccessor     { return ecs.EnsurePool[Name](w) }

func newCreateCommand() *cobra.Command {
	var configPath, outPath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build a world from a HuJSON config and save it as a text snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			w := ecs.NewWorld(ecs.Options{MaxEntities: cfg.MaxEntities})
			defer w.Close()
			reg := newRegistry(w)
			posPool, namePool := poolForPosition(w), poolForName(w)

			for _, spec := range cfg.Entities {
				e, err := w.CreateEntity()
				if err != nil {
					return err
				}
				if err := posPool.SetAny(e, Position{X: spec.X, Y: spec.Y}); err != nil {
					return err
				}
				if spec.Name != "" {
					if err := namePool.SetAny(e, Name{Value: spec.Name}); err != nil {
						return err
					}
				}
			}

			return saveText(w, reg, outPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "world.hujson", "HuJSON world config")
	cmd.Flags().StringVar(&outPath, "out", "world.txt", "output snapshot path")
	return cmd
}

func saveText(w *ecs.World, reg *serialize.Registry, path string) error {
	var buf bytes.Buffer
	text := &serialize.Text{Registry: reg}
	if err := text.Serialize(&buf, w); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

func loadText(path string) (*ecs.World, *serialize.Registry, error) {
	w, reg := newWorldWithDemoTypes()
	text := &serialize.Text{Registry: reg}

	f, err := os.Open(path)
	if err != nil {
		w.Close()
		return nil, nil, err
	}
	defer f.Close()
	if err := text.Deserialize(f, w); err != nil {
		w.Close()
		return nil, nil, err
	}
	return w, reg, nil
}

func newDumpCommand() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Re-save an existing snapshot (round-trips through the engine)",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, reg, err := loadText(in)
			if err != nil {
				return err
			}
			defer w.Close()
			return saveText(w, reg, out)
		},
	}
	cmd.Flags().StringVar(&in, "in", "world.txt", "input snapshot")
	cmd.Flags().StringVar(&out, "out", "world.out.txt", "output snapshot")
	return cmd
}

func newLoadCommand() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a snapshot and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := loadText(in)
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Printf("loaded %d entities\n", len(w.AliveEntities()))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "world.txt", "input snapshot")
	return cmd
}

func newInspectCommand() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print each entity and its Position/Name components",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := loadText(in)
			if err != nil {
				return err
			}
			defer w.Close()

			posPool, namePool := poolForPosition(w), poolForName(w)
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
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "world.txt", "input snapshot")
	return cmd
}
