package main

import (
	"github.com/trezcool/eduapp/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	return gooseRunFunc(cli.db, cli.engine, args[0], args[1:]...)
}
