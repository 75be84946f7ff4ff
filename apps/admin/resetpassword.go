package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	tchr, err := cli.teachers.SetPassword(context.Background(), uname, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q updated\n", tchr.Username)
	return nil
}
