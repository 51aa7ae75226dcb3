package console

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/router"
	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultRoutesYAML []byte

type routeFile struct {
	Routes []routeEntry `yaml:"routes"`
}

type routeEntry struct {
	Name                        string `yaml:"name"`
	Path                        string `yaml:"path"`
	Title                       string `yaml:"title"`
	Redirect                    string `yaml:"redirect"`
	domainauth.RouteRequirement `yaml:",inline"`
}

// DefaultRoutes returns the embedded application route table.
func DefaultRoutes() ([]router.Route, error) {
	return LoadRoutes(defaultRoutesYAML)
}

// LoadRoutes parses a route table. Unknown fields and invalid requirement
// combinations are rejected.
func LoadRoutes(data []byte) ([]router.Route, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file routeFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode route table: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, errors.New("route table is empty")
	}

	routes := make([]router.Route, 0, len(file.Routes))
	for _, e := range file.Routes {
		if e.Name == "" {
			return nil, fmt.Errorf("route %s: name is required", e.Path)
		}
		if err := e.RouteRequirement.Validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", e.Name, err)
		}
		routes = append(routes, router.Route{
			Name:        e.Name,
			Path:        e.Path,
			Title:       e.Title,
			Requirement: e.RouteRequirement,
			Redirect:    e.Redirect,
		})
	}
	return routes, nil
}
