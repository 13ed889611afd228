package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemasFS embed.FS

const baseURL = "mem://catalog-service/"

// Contract names.
const (
	FilterSchema     = "filter-schema"
	SavedFilters     = "saved-filters"
	ListingPublished = "listing-published"
	FiltersChanged   = "filters-changed"
	FiltersSaved     = "filters-saved"
)

var (
	compileOnce     sync.Once
	compileErr      error
	compiledSchemas map[string]*jsonschema.Schema
)

// load adds every embedded schema as a resource first, so schemas can $ref each
// other, then compiles and registers them under "<name>/<semver>".
func load() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		var paths []string
		err := fs.WalkDir(schemasFS, "schemas", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ".json") {
				return nil
			}
			data, err := schemasFS.ReadFile(p)
			if err != nil {
				return err
			}
			if err := compiler.AddResource(baseURL+p, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("failed to add schema resource %s: %w", p, err)
			}
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			compileErr = fmt.Errorf("error walking schema resources: %w", err)
			return
		}

		compiled := make(map[string]*jsonschema.Schema, len(paths))
		for _, p := range paths {
			schema, err := compiler.Compile(baseURL + p)
			if err != nil {
				compileErr = fmt.Errorf("could not compile schema %s: %w", p, err)
				return
			}
			compiled[generateKeyFromPath(p)] = schema
		}
		compiledSchemas = compiled
	})
	return compileErr
}

// generateKeyFromPath turns "schemas/listing-published/v1.json" into "listing-published/1.0.0".
func generateKeyFromPath(p string) string {
	dir, file := path.Split(strings.TrimPrefix(p, "schemas/"))
	name := strings.TrimSuffix(dir, "/")
	major := strings.TrimPrefix(strings.TrimSuffix(file, ".json"), "v")
	return name + "/" + major + ".0.0"
}

// Validate checks a JSON document against the named contract.
func Validate(name, version string, body []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("contract %s/%s: invalid JSON: %w", name, version, err)
	}
	return ValidateValue(name, version, doc)
}

// ValidateValue checks an already decoded JSON value (maps, slices, json.Number...).
func ValidateValue(name, version string, doc interface{}) error {
	if err := load(); err != nil {
		return err
	}
	schema, ok := compiledSchemas[name+"/"+version]
	if !ok {
		return fmt.Errorf("contract %s/%s is not registered", name, version)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("contract %s/%s: %w", name, version, err)
	}
	return nil
}

// Registered lists the contract keys, mostly for diagnostics.
func Registered() ([]string, error) {
	if err := load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(compiledSchemas))
	for k := range compiledSchemas {
		keys = append(keys, k)
	}
	return keys, nil
}
