// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const consoleHelp = "commands: start | stop | status | id <subject> | quit"

// RunConsole reads one command per line from in and prints the resulting
// status to out. It returns when in is exhausted or on "quit", reporting
// whether quit was requested.
func RunConsole(in io.Reader, out io.Writer, ctrl *Controller) (quit bool, err error) {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, consoleHelp)

	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")

		switch strings.ToLower(cmd) {
		case "":
			continue
		case "start":
			fmt.Fprintln(out, ctrl.Start())
		case "stop":
			fmt.Fprintln(out, ctrl.Stop())
		case "status":
			st := ctrl.Status()
			fmt.Fprintf(out,
				"state=%s subject=%q published=%d failed=%d last=%q\n",
				st.State, st.SubjectID, st.Stats.Published, st.Stats.Failed, st.Last.Status,
			)
		case "id":
			ctrl.SetSubject(arg)
			fmt.Fprintf(out, "subject=%q\n", ctrl.Status().SubjectID)
		case "quit", "exit":
			return true, nil
		default:
			fmt.Fprintf(out, "unknown command %q; %s\n", cmd, consoleHelp)
		}
	}
	return false, scanner.Err()
}
