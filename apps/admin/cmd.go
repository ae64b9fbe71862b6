package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/session"
	"github.com/trezcool/mahudhurio/core/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sql.DB
	teacherSvc *teacher.Service
	detector   session.Detector
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS...] - run DB migrations (up, down, status, ...)")
	fmt.Println("  addteacher -username USERNAME -name FULLNAME -email EMAIL - add or update a teacher; the password will be prompted")
	fmt.Println("  enroll -dir PHOTOS_DIR [-out ENCODINGS_FILE] - build the face encoding store from enrollment photos")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's username. The password will be prompted next.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email.")

	enrollCmd := flag.NewFlagSet("enroll", flag.ExitOnError)
	enrollDir := enrollCmd.String("dir", "", "Directory of per-student photo folders, named by roll number.")
	enrollOut := enrollCmd.String("out", cli.conf.Face.EncodingsPath, "Output path of the encoding store.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherUname == "" || *addTeacherName == "" || *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherUname, *addTeacherName, *addTeacherEmail, string(pwd))
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollDir == "" {
			enrollCmd.Usage()
			return errHelp
		}
		return cli.enroll(*enrollDir, *enrollOut)
	default:
		cli.printUsage()
		return errHelp
	}
}
