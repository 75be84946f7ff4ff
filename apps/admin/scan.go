package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core/attendance"
)

// maxPayloadSize is the longest input line treated as a QR payload.
const maxPayloadSize = 4 << 10

// scan runs a scanning session on the subject: every non-blank input line is a decoded QR payload.
// A failed scan is reported and the session goes on with the next line.
func (cli *commandLine) scan(subjectID, uname string) error {
	ctx := context.Background()

	tchr, err := cli.teachers.GetByUsername(ctx, uname)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	sess, err := cli.attendance.StartSession(ctx, tchr.ID, subjectID)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	fmt.Fprintf(cli.out, "session started: %s\n", sess.Summary())

	r := bufio.NewReader(cli.in)
	for {
		line, rerr := r.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return errors.Wrap(rerr, "reading payloads")
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case len(line) > maxPayloadSize:
			fmt.Fprintln(cli.out, attendance.Outcome{Result: attendance.Rejected, Reason: attendance.ReasonMalformedPayload}.Message())
		default:
			out, err := cli.attendance.RecordScan(ctx, tchr.ID, subjectID, line, sess)
			switch {
			case err == nil:
				fmt.Fprintln(cli.out, out.Message())
			case attendance.IsStorageFailure(err):
				fmt.Fprintf(cli.out, "scan failed, please retry: %v\n", err)
			default:
				fmt.Fprintf(cli.out, "scan rejected: %v\n", errors.Cause(err))
			}
		}

		if rerr == io.EOF {
			break
		}
	}

	fmt.Fprintln(cli.out, "---")
	for _, e := range sess.Roster() {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", e.StudentID, e.Name, e.Status)
	}
	fmt.Fprintf(cli.out, "session ended: %s\n", sess.Summary())
	return nil
}
