package main

import "fmt"

type migrateCmd struct{}

// Run opens the configured store, which applies pending migrations, and exits.
func (c *migrateCmd) Run(rt *runtime) error {
	st, err := openStore(rt.ctx, rt.cfg.DatabaseDSN, rt.logger)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := st.Close(); err != nil {
		return err
	}
	fmt.Fprintln(rt.out, "database schema is up to date")
	return nil
}
