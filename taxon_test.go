package tdk_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/test"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in     string
		exp    tdk.Field
		expErr bool
	}{
		{in: "", exp: tdk.Field{}},
		{in: "NA", exp: tdk.UnavailableField()},
		{in: "0", exp: tdk.KnownField(0)},
		{in: "1758", exp: tdk.KnownField(1758)},
		{in: "1758.0", exp: tdk.KnownField(1758)},
		{in: "12.5", expErr: true},
		{in: "many", expErr: true},
		{in: "NaN", expErr: true},
	}
	for _, tst := range tests {
		f, err := tdk.ParseField(tst.in)
		if tst.expErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %v", tst.in, f)
			}
			continue
		}
		test.ErrNil(t, err, tst.in)
		test.MustBe(t, tst.exp, f, tst.in)
	}
}

func TestFieldString(t *testing.T) {
	test.MustBe(t, "", tdk.Field{}.String())
	test.MustBe(t, "NA", tdk.UnavailableField().String())
	test.MustBe(t, "0", tdk.KnownField(0).String())
	if tdk.KnownField(0).String() == tdk.UnavailableField().String() {
		t.Fatalf("a verified zero must not look like a failed lookup")
	}
}

func TestTaxonComplete(t *testing.T) {
	tx := &tdk.Taxon{Name: "Felis catus", AttentionSS: tdk.KnownField(3), AttentionPM: tdk.UnavailableField()}
	if tx.Complete() {
		t.Fatalf("taxon with absent year reported complete")
	}
	tx.YearOFD = tdk.UnavailableField()
	if !tx.Complete() {
		t.Fatalf("taxon with all fields filled reported incomplete")
	}
}

func TestTableRoundTrip(t *testing.T) {
	tbl := tdk.Table{
		{Name: "Felis catus", Degree: 2, AttentionSS: tdk.KnownField(0), AttentionPM: tdk.UnavailableField(), YearOFD: tdk.KnownField(1758)},
		{Name: "Mus musculus, L.", Degree: 2},
	}
	buf := &bytes.Buffer{}
	test.ErrNil(t, tbl.Write(buf), "Write")
	exp := "taxon_name,degree,attention_ss,attention_pm,year_ofd\n" +
		"Felis catus,2,0,NA,1758\n" +
		"\"Mus musculus, L.\",2,,,\n"
	test.MustBe(t, exp, buf.String())

	got, err := tdk.ReadTable(buf)
	test.ErrNil(t, err, "ReadTable")
	test.MustBe(t, tbl, got)
	test.MustBe(t, 1, got.Complete())
}

func TestReadTable(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		exp    tdk.Table
		expErr string
	}{
		{
			name: "degree table",
			in:   "taxon_name,degree\nFelis catus,2\n",
			exp:  tdk.Table{{Name: "Felis catus", Degree: 2}},
		},
		{
			name: "float years",
			in:   "taxon_name,degree,attention_ss,attention_pm,year_ofd\na,1,4.0,,1758.0\n",
			exp:  tdk.Table{{Name: "a", Degree: 1, AttentionSS: tdk.KnownField(4), YearOFD: tdk.KnownField(1758)}},
		},
		{
			name:   "short row",
			in:     "taxon_name,degree,attention_ss\na,1\n",
			expErr: "wrong number of fields",
		},
		{
			name:   "bad degree",
			in:     "taxon_name,degree\na,x\n",
			expErr: "parsing degree on line 2",
		},
		{
			name:   "missing degree",
			in:     "taxon_name\na\n",
			expErr: "column 'degree'",
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			got, err := tdk.ReadTable(strings.NewReader(tst.in))
			if tst.expErr != "" {
				if err == nil || !strings.Contains(err.Error(), tst.expErr) {
					t.Fatalf("expected error containing %q, got %v", tst.expErr, err)
				}
				return
			}
			test.ErrNil(t, err, "ReadTable")
			test.MustBe(t, tst.exp, got)
		})
	}
}

func TestNewTable(t *testing.T) {
	tbl := tdk.NewTable([]tdk.DegreeEntry{{Name: "a", Degree: 3}, {Name: "b", Degree: 1}})
	test.MustBe(t, tdk.Table{{Name: "a", Degree: 3}, {Name: "b", Degree: 1}}, tbl)
	test.MustBe(t, 0, tbl.Complete())
}
