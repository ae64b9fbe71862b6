package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/session"
	"github.com/trezcool/mahudhurio/core/teacher"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

// fileDetector maps photo bytes to scripted descriptors.
type fileDetector struct {
	byContent map[string][]session.DetectedFace
}

func (d *fileDetector) DetectFaces(ctx context.Context, frame session.Frame) ([]session.DetectedFace, error) {
	return d.byContent[string(frame.Data)], nil
}

func setup(t *testing.T) (*commandLine, teacher.Repository, *fileDetector) {
	t.Helper()

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	conf := core.NewConfig()
	conf.Face.StrictMatchThreshold = 0.4

	repo := inmemdb.NewTeacherRepository(inmemdb.NewDB())
	detector := &fileDetector{byContent: make(map[string][]session.DetectedFace)}

	cli := &commandLine{
		conf:       conf,
		teacherSvc: teacher.NewService(repo),
		detector:   detector,
	}
	return cli, repo, detector
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "enrollment", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, err)
				} else if tt.wantErrStr != "" {
					assert.EqualError(t, err, tt.wantErrStr)
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli, repo, _ := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addteacher"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addteacher", "-username", "jdoe", "-name", "Jane Doe"}, wantErr: errHelp},
		{name: "no password", args: []string{"addteacher", "-username", "jdoe", "-name", "Jane Doe", "-email", "jdoe@test.cd"}, wantErr: errHelp},
		{name: "ok", args: []string{"addteacher", "-username", "jdoe", "-name", "Jane Doe", "-email", "jdoe@test.cd"}, extra: extra{pwd: "s3cret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				tchr, err := repo.GetTeacherByUsername(context.Background(), "jdoe")
				require.NoError(t, err)
				assert.Equal(t, "Jane Doe", tchr.FullName)
				assert.NoError(t, tchr.CheckPassword("s3cret"))
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_enroll(t *testing.T) {
	writePhoto := func(t *testing.T, dir, rollNo, name, content string) {
		t.Helper()
		studentDir := filepath.Join(dir, rollNo)
		require.NoError(t, os.MkdirAll(studentDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(studentDir, name), []byte(content), 0o644))
	}

	t.Run("builds the store", func(t *testing.T) {
		cli, _, detector := setup(t)
		dir := t.TempDir()
		out := filepath.Join(t.TempDir(), "encodings.gob")

		writePhoto(t, dir, "S1", "a.jpg", "s1-photo-a")
		writePhoto(t, dir, "S1", "b.jpg", "s1-photo-b")
		writePhoto(t, dir, "S2", "a.jpg", "s2-photo-a")
		writePhoto(t, dir, "S2", "notes.txt", "not a photo")
		detector.byContent["s1-photo-a"] = []session.DetectedFace{{Descriptor: face.Descriptor{0.0}}}
		detector.byContent["s1-photo-b"] = []session.DetectedFace{{Descriptor: face.Descriptor{0.1}}}
		detector.byContent["s2-photo-a"] = []session.DetectedFace{{Descriptor: face.Descriptor{5.0}}}

		require.NoError(t, cli.run([]string{"admin", "enroll", "-dir", dir, "-out", out}))

		store, err := face.LoadStore(out)
		require.NoError(t, err)
		assert.Equal(t, 3, store.Len())

		m := store.Match(face.Descriptor{0.05}, 0.6)
		require.NotNil(t, m)
		assert.Equal(t, "S1", m.StudentID)
	})

	t.Run("rejects a likely mislabeled photo", func(t *testing.T) {
		cli, _, detector := setup(t)
		dir := t.TempDir()
		out := filepath.Join(t.TempDir(), "encodings.gob")

		writePhoto(t, dir, "S1", "a.jpg", "s1-photo")
		writePhoto(t, dir, "S2", "a.jpg", "s2-photo")
		detector.byContent["s1-photo"] = []session.DetectedFace{{Descriptor: face.Descriptor{0.0}}}
		detector.byContent["s2-photo"] = []session.DetectedFace{{Descriptor: face.Descriptor{0.1}}} // within strict range of S1

		err := cli.run([]string{"admin", "enroll", "-dir", dir, "-out", out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "likely mislabeled")
	})

	t.Run("rejects photos without exactly one face", func(t *testing.T) {
		cli, _, detector := setup(t)
		dir := t.TempDir()
		out := filepath.Join(t.TempDir(), "encodings.gob")

		writePhoto(t, dir, "S1", "a.jpg", "crowd")
		detector.byContent["crowd"] = []session.DetectedFace{
			{Descriptor: face.Descriptor{0.0}},
			{Descriptor: face.Descriptor{1.0}},
		}

		err := cli.run([]string{"admin", "enroll", "-dir", dir, "-out", out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected exactly 1 face")
	})

	t.Run("missing dir flag", func(t *testing.T) {
		cli, _, _ := setup(t)
		assert.Equal(t, errHelp, cli.run([]string{"admin", "enroll"}))
	})
}
