package demo

import (
	"errors"
	"io"
	"io/fs"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var createTable = regexp.MustCompile(`CREATE TABLE IF NOT EXISTS (\w+)`)

func TestMigrationsCreateEveryTable(t *testing.T) {
	src, err := Migrations()
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	defer src.Close()

	var versions []uint
	var created []string
	version, err := src.First()
	for err == nil {
		versions = append(versions, version)

		up, _, readErr := src.ReadUp(version)
		if readErr != nil {
			t.Fatalf("read up %d: %v", version, readErr)
		}
		body, readErr := io.ReadAll(up)
		_ = up.Close()
		if readErr != nil {
			t.Fatalf("read up %d: %v", version, readErr)
		}
		for _, match := range createTable.FindAllStringSubmatch(string(body), -1) {
			created = append(created, match[1])
		}

		down, _, readErr := src.ReadDown(version)
		if readErr != nil {
			t.Fatalf("migration %d has no down file: %v", version, readErr)
		}
		_ = down.Close()

		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("walk migrations: %v", err)
	}

	if diff := cmp.Diff([]uint{1, 2}, versions); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Tables, created); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
}
