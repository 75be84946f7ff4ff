package main

import (
	"context"
	"fmt"

	"github.com/trezcool/eduapp/core/teacher"
)

// addTeacher registers an active teacher. The password policy applies.
func (cli *commandLine) addTeacher(uname, name, email, pwd string) error {
	tchr, err := cli.teachers.Register(context.Background(), teacher.NewTeacher{
		Username: uname,
		Name:     name,
		Email:    email,
		Password: pwd,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "teacher %q created (ID: %s)\n", tchr.Username, tchr.ID)
	return nil
}
