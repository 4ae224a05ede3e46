package models

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type CategoryDef struct {
	Nome       string   `json:"nome" yaml:"nome"`
	Documentos []string `json:"documentos" yaml:"documentos"`
	// optional initial status used only by seeding
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

type ClientDef struct {
	ID                 int           `json:"id" yaml:"id"`
	Nome               string        `json:"nome" yaml:"nome"`
	Grupo              string        `json:"grupo,omitempty" yaml:"grupo,omitempty"`
	Segmento           string        `json:"segmento,omitempty" yaml:"segmento,omitempty"`
	ChaveArmazenamento string        `json:"chave_armazenamento,omitempty" yaml:"chave_armazenamento,omitempty"`
	Categorias         []CategoryDef `json:"categorias" yaml:"categorias"`
}

// StorageKey is the key used to look up the client's file listing; defaults to the client id.
func (c ClientDef) StorageKey() string {
	if key := strings.TrimSpace(c.ChaveArmazenamento); key != "" {
		return key
	}
	return strconv.Itoa(c.ID)
}

func (c ClientDef) GroupOrDefault() string {
	return utils.DefaultIfBlank(c.Grupo, defaultClientAttribute)
}

func (c ClientDef) SegmentOrDefault() string {
	return utils.DefaultIfBlank(c.Segmento, defaultClientAttribute)
}

func (c ClientDef) findCategory(name string) (CategoryDef, bool) {
	for _, cat := range c.Categorias {
		if cat.Nome == name {
			return cat, true
		}
	}
	return CategoryDef{}, false
}

// CatalogLoader returns the master client definitions. It never fails: a missing or
// unreadable catalog reads as no clients.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) []ClientDef
}

// FileCatalog reads the catalog from disk on every call. Files ending in .yaml/.yml are
// parsed as YAML, everything else as JSON.
type FileCatalog struct {
	Path   string
	Logger *logrus.Logger
}

func NewFileCatalog(path string, logger *logrus.Logger) *FileCatalog {
	return &FileCatalog{Path: path, Logger: logger}
}

func (fc *FileCatalog) LoadCatalog(ctx context.Context) []ClientDef {
	data, err := os.ReadFile(fc.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && fc.Logger != nil {
			config.LogError(fc.Logger, "Catalog", "LoadCatalog", "reading catalog", fc.Path, err)
		}
		return []ClientDef{}
	}

	var defs []ClientDef
	switch strings.ToLower(filepath.Ext(fc.Path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &defs)
	default:
		err = utils.UnmarshalFromJSON(data, &defs)
	}
	if err != nil {
		if fc.Logger != nil {
			config.LogError(fc.Logger, "Catalog", "LoadCatalog", "parsing catalog", fc.Path, err)
		}
		return []ClientDef{}
	}
	if defs == nil {
		defs = []ClientDef{}
	}
	return defs
}

// StaticCatalog serves a fixed catalog; used by tools and tests.
type StaticCatalog []ClientDef

func (sc StaticCatalog) LoadCatalog(ctx context.Context) []ClientDef {
	out := make([]ClientDef, len(sc))
	copy(out, sc)
	return out
}

func findClientDef(defs []ClientDef, id int) (ClientDef, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return ClientDef{}, false
}
