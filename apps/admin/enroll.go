package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/session"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// enroll builds the encoding store from a directory of per-student photo
// folders named by roll number:
//
//	photos/
//	  S001/ a.jpg b.jpg
//	  S002/ c.jpg
//
// Each photo must contain exactly one face. A sample whose descriptor sits
// within the strict threshold of another student's encodings is rejected as a
// likely mislabeled photo.
func (cli *commandLine) enroll(dir, out string) error {
	students, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "reading photos directory")
	}

	ctx := context.Background()
	encodings := make([]face.Encoding, 0)

	for _, entry := range students {
		if !entry.IsDir() {
			continue
		}
		rollNo := entry.Name()

		photos, err := cli.studentPhotos(filepath.Join(dir, rollNo))
		if err != nil {
			return err
		}
		if len(photos) == 0 {
			logger.Printf("%s: no photos, skipping", rollNo)
			continue
		}

		for _, photo := range photos {
			enc, err := cli.encodePhoto(ctx, photo, rollNo, encodings)
			if err != nil {
				return err
			}
			encodings = append(encodings, enc)
		}
		logger.Printf("%s: %d sample(s) enrolled", rollNo, len(photos))
	}

	if err := face.SaveStore(out, encodings); err != nil {
		return err
	}
	logger.Printf("wrote %d encoding(s) to %s", len(encodings), out)
	return nil
}

func (cli *commandLine) studentPhotos(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	photos := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		photos = append(photos, filepath.Join(dir, f.Name()))
	}
	sort.Strings(photos)
	return photos, nil
}

func (cli *commandLine) encodePhoto(ctx context.Context, path, rollNo string, known []face.Encoding) (face.Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return face.Encoding{}, errors.Wrapf(err, "reading %s", path)
	}

	faces, err := cli.detector.DetectFaces(ctx, session.Frame{Data: data, CapturedAt: time.Now()})
	if err != nil {
		return face.Encoding{}, errors.Wrapf(err, "detecting faces in %s", path)
	}
	if len(faces) != 1 {
		return face.Encoding{}, fmt.Errorf("%s: expected exactly 1 face, found %d", path, len(faces))
	}
	desc := faces[0].Descriptor

	// cross-check against other students' samples
	for _, enc := range known {
		if enc.StudentID == rollNo {
			continue
		}
		if d := face.EuclideanDistance(desc, enc.Descriptor); d < cli.conf.Face.StrictMatchThreshold {
			return face.Encoding{}, fmt.Errorf("%s: too close to %s's samples (distance %.3f); photo likely mislabeled", path, enc.StudentID, d)
		}
	}

	return face.Encoding{Descriptor: desc, StudentID: rollNo}, nil
}
