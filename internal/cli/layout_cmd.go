package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/lobeboard/internal/layout"
	"github.com/soyeahso/lobeboard/internal/store"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect or reset the persisted panel layout",
	}

	cmd.AddCommand(newLayoutShowCmd())
	cmd.AddCommand(newLayoutClearCmd())
	return cmd
}

func openLayoutManager() (*layout.Manager, func(), error) {
	db, err := store.Open(paths.LayoutDB(), log)
	if err != nil {
		return nil, nil, err
	}
	mgr := layout.NewManager(store.NewBlobStore(db), layout.Options{Log: log})
	cleanup := func() {
		mgr.Close()
		db.Close()
	}
	return mgr, cleanup, nil
}

func newLayoutShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted layout snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := openLayoutManager()
			if err != nil {
				return err
			}
			defer cleanup()

			snapshot, ok := mgr.Load()
			if !ok {
				fmt.Println("no valid persisted layout (the dashboard will build the default arrangement)")
				return nil
			}
			fmt.Printf("panels: %s\n", strings.Join(snapshot.Panels, ", "))
			fmt.Printf("grid:   %s\n", string(snapshot.Grid))
			return nil
		},
	}
}

func newLayoutClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := openLayoutManager()
			if err != nil {
				return err
			}
			defer cleanup()

			mgr.Clear()
			fmt.Println("persisted layout cleared")
			return nil
		},
	}
}
