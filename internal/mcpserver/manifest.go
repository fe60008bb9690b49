package mcpserver

import (
	"encoding/json"

	"github.com/panbanda/clasp/pkg/config"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest is the registry description of the server (server.json).
type Manifest struct {
	Schema      string          `json:"$schema"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Version     string          `json:"version"`
	Repository  *Repository     `json:"repository,omitempty"`
	Packages    []ServerPackage `json:"packages,omitempty"`
}

// Repository points at the source code.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// ServerPackage is one way to launch the server.
type ServerPackage struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            struct {
		Type string `json:"type"`
	} `json:"transport"`
}

// Argument is a positional argument passed to the package entrypoint.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable documents an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// GenerateManifest returns the indented server.json for version.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	pkg := ServerPackage{
		RegistryType:     "oci",
		Identifier:       "ghcr.io/panbanda/clasp:" + version,
		PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
		EnvironmentVariables: []EnvVariable{{
			Name:        config.EnvConfigPath,
			Description: "Path to a clasp.toml, clasp.yaml or clasp.json config file",
		}},
	}
	pkg.Transport.Type = "stdio"

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/clasp",
		Description: "Find repeated CSS utility class combinations and rank component extraction candidates",
		Version:     version,
		Repository:  &Repository{URL: "https://github.com/panbanda/clasp", Source: "github"},
		Packages:    []ServerPackage{pkg},
	}, "", "  ")
}
