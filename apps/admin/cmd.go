package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations are only supported by the postgres and sqlite engines")
)

type commandLine struct {
	engine     string
	db         *sqlx.DB // nil unless the engine is SQL
	teachers   teacher.ServiceInterface
	attendance *attendance.Service
	store      attendance.Storage
	translator ut.Translator
	in         io.Reader
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  addteacher -username USERNAME [-name NAME] [-email EMAIL] - register a teacher")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME - reset a teacher's password")
	fmt.Fprintln(cli.out, "  seed - create the default years & students")
	fmt.Fprintln(cli.out, "  scan -subject SUBJECT_ID -teacher USERNAME - record decoded QR payloads read from stdin, one per line")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ContinueOnError)
	addTeacherCmd.SetOutput(cli.out)
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's username. The password will be prompted next.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email, used for attendance reports.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The teacher's username. The password will be prompted next.")

	scanCmd := flag.NewFlagSet("scan", flag.ContinueOnError)
	scanCmd.SetOutput(cli.out)
	scanSubject := scanCmd.String("subject", "", "The ID of the subject to record attendance for.")
	scanTeacher := scanCmd.String("teacher", "", "The username of the teacher owning the subject.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addTeacherUname == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherUname, *addTeacherName, *addTeacherEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "seed":
		return cli.seed()

	case "scan":
		if err := scanCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *scanSubject == "" || *scanTeacher == "" {
			scanCmd.Usage()
			return errHelp
		}
		return cli.scan(*scanSubject, *scanTeacher)

	default:
		cli.printUsage()
		return errHelp
	}
}

// describe renders err for the operator, flattening validation errors.
func (cli *commandLine) describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for fld, msg := range core.TranslateErrors(verrs, cli.translator) {
			msgs = append(msgs, fld+": "+msg)
		}
		return "error: " + strings.Join(msgs, "; ")
	}
	return "error: " + err.Error()
}
