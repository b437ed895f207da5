package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/globi-tools/tdk/cmd"
	"github.com/globi-tools/tdk/test"
)

func TestDegreeConfig(t *testing.T) {
	dir := test.MustTempDir(t)
	input := test.MustWriteFile(t, dir, "interactions.csv",
		"source_taxon_name,target_taxon_name\nFelis catus,Mus musculus\nMus musculus,Felis catus\n")
	output := filepath.Join(dir, "out", "degree.csv")
	config := test.MustWriteFile(t, dir, "tdk.toml", `
source-field = "source_taxon_name"
target-field = "target_taxon_name"
output = "ignored.csv"
`)
	os.Setenv("TDK_OUTPUT", output)
	defer os.Unsetenv("TDK_OUTPUT")

	stderr := &bytes.Buffer{}
	rc := cmd.NewRootCommand(strings.NewReader(""), &bytes.Buffer{}, stderr)
	rc.SetArgs([]string{"degree",
		"--config", config,
		"--inputs", input,
		"--log-path", filepath.Join(dir, "degree.log"),
	})
	if err := rc.Execute(); err != nil {
		t.Fatalf("executing: %v, output:\n%s", err, stderr.String())
	}
	test.MustBe(t, "taxon_name,degree\nFelis catus,2\nMus musculus,2\n", test.MustReadFile(t, output))
	if !strings.Contains(stderr.String(), "Done: 2 taxa") {
		t.Fatalf("unexpected command output:\n%s", stderr.String())
	}
}

func TestSubcommands(t *testing.T) {
	rc := cmd.NewRootCommand(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	for _, name := range []string{"split", "degree", "enrich"} {
		c, _, err := rc.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Fatalf("finding %s: %v", name, err)
		}
	}
}
