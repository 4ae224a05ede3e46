package models

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestFileCatalog_JSON(t *testing.T) {
	p := writeFile(t, "dados_mestres.json", `[
  {"id": 1, "nome": "Acme", "grupo": "Grupo A", "categorias": [
    {"nome": "Fiscal", "documentos": ["A.xls", "B.pdf"]}
  ]},
  {"id": 2, "nome": "Beta", "chave_armazenamento": "beta-ltda", "categorias": []}
]`)
	defs := NewFileCatalog(p, testLogger()).LoadCatalog(context.Background())
	if len(defs) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(defs))
	}
	if defs[0].Nome != "Acme" || defs[0].GroupOrDefault() != "Grupo A" || defs[0].SegmentOrDefault() != "N/A" {
		t.Fatalf("unexpected first client: %+v", defs[0])
	}
	if got := defs[0].Categorias[0].Documentos; len(got) != 2 || got[1] != "B.pdf" {
		t.Fatalf("unexpected documents: %v", got)
	}
	if defs[0].StorageKey() != "1" || defs[1].StorageKey() != "beta-ltda" {
		t.Fatalf("unexpected storage keys %q %q", defs[0].StorageKey(), defs[1].StorageKey())
	}
}

func TestFileCatalog_YAML(t *testing.T) {
	p := writeFile(t, "catalogo.yaml", `
- id: 7
  nome: Gama
  segmento: Indústria
  categorias:
    - nome: Pessoal
      status: RECEBIDO
      documentos:
        - folha.pdf
`)
	defs := NewFileCatalog(p, testLogger()).LoadCatalog(context.Background())
	if len(defs) != 1 || defs[0].ID != 7 || defs[0].Segmento != "Indústria" {
		t.Fatalf("unexpected catalog: %+v", defs)
	}
	if defs[0].Categorias[0].Status != "RECEBIDO" || defs[0].Categorias[0].Documentos[0] != "folha.pdf" {
		t.Fatalf("unexpected category: %+v", defs[0].Categorias[0])
	}
}

func TestFileCatalog_FailsSoft(t *testing.T) {
	missing := NewFileCatalog(filepath.Join(t.TempDir(), "nope.json"), testLogger()).LoadCatalog(context.Background())
	if missing == nil || len(missing) != 0 {
		t.Fatalf("expected empty catalog for missing file, got %#v", missing)
	}
	corrupt := NewFileCatalog(writeFile(t, "bad.json", `{"id":`), testLogger()).LoadCatalog(context.Background())
	if corrupt == nil || len(corrupt) != 0 {
		t.Fatalf("expected empty catalog for corrupt file, got %#v", corrupt)
	}
}

func TestJSONFileLister(t *testing.T) {
	ctx := context.Background()

	flat := NewJSONFileLister(writeFile(t, "flat.json", `["a.xls", "b.pdf", "a.xls"]`), testLogger())
	got := flat.ListFiles(ctx, "qualquer")
	if !got.Available || len(got.Files) != 2 {
		t.Fatalf("expected shared listing with duplicates removed, got %+v", got)
	}

	keyed := NewJSONFileLister(writeFile(t, "keyed.json", `{"1": ["a.xls"], "beta-ltda": ["folha.pdf"]}`), testLogger())
	if got := keyed.ListFiles(ctx, "beta-ltda"); !got.Available || len(got.Files) != 1 || got.Files[0] != "folha.pdf" {
		t.Fatalf("unexpected keyed listing: %+v", got)
	}
	if got := keyed.ListFiles(ctx, "2"); !got.Available || len(got.Files) != 0 {
		t.Fatalf("expected available empty listing for unknown key, got %+v", got)
	}

	missing := NewJSONFileLister(filepath.Join(t.TempDir(), "nope.json"), testLogger())
	if got := missing.ListFiles(ctx, "1"); got.Available || len(got.Files) != 0 {
		t.Fatalf("expected unavailable listing, got %+v", got)
	}
}

func TestMatchPolicy(t *testing.T) {
	files := []string{"2024/A.XLS", "balancete.pdf", ""}
	cases := []struct {
		policy MatchPolicy
		doc    string
		want   bool
	}{
		{MatchPolicySubstring, "a.xls", true},
		{MatchPolicySubstring, "Balancete.PDF", true},
		{MatchPolicySubstring, "folha.pdf", false},
		{MatchPolicySubstring, "", false},
		{MatchPolicyExact, "a.xls", false},
		{MatchPolicyExact, "BALANCETE.pdf", true},
	}
	for _, tc := range cases {
		if got := tc.policy.Matcher(files)(tc.doc); got != tc.want {
			t.Fatalf("%s match of %q: expected %v, got %v", tc.policy, tc.doc, tc.want, got)
		}
	}
	if ParseMatchPolicy("EXACT") != MatchPolicyExact || ParseMatchPolicy("fuzzy") != MatchPolicySubstring {
		t.Fatalf("unexpected ParseMatchPolicy result")
	}
}

func TestDecodeDocumentNames_Empty(t *testing.T) {
	names, err := decodeDocumentNames(nil)
	if err != nil || names == nil || len(names) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", names, err)
	}
	if got := (CategoriaChecklist{DetalhesDocumentosJson: []byte("{broken")}).DocumentNames(); len(got) != 0 {
		t.Fatalf("expected corrupt column to read as empty, got %v", got)
	}
}
