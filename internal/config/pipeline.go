package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sources accepted by Pipeline.Source.
const (
	SourceURLs    = "urls"
	SourceCatalog = "catalog"
)

// Pipeline describes a full run: an optional CSV prepare stage, the
// task source, and the fetch configuration.
type Pipeline struct {
	Source  string
	Prepare *PrepareStage
	Fetch   Config
}

// PrepareStage filters a portal CSV export into a URL list before
// fetching.
type PrepareStage struct {
	CSV      string `yaml:"csv"`
	URLFile  string `yaml:"url_file"`
	Metadata string `yaml:"metadata"`
	Tissue   string `yaml:"tissue"`
	Sex      string `yaml:"sex"`
	BaseURL  string `yaml:"base_url"`
	Max      int    `yaml:"max"`
}

type yamlPipeline struct {
	Source  string        `yaml:"source"`
	Prepare *PrepareStage `yaml:"prepare"`
	Fetch   yamlConfig    `yaml:"fetch"`
}

// LoadPipeline loads a pipeline definition from a YAML file. The fetch
// section layers over the defaults the same way a config file does.
func LoadPipeline(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read pipeline file: %w", err)
	}

	var yp yamlPipeline
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return Pipeline{}, fmt.Errorf("parse pipeline file: %w", err)
	}

	fetch, err := yp.Fetch.apply(Default())
	if err != nil {
		return Pipeline{}, err
	}

	p := Pipeline{Source: yp.Source, Prepare: yp.Prepare, Fetch: fetch}
	if p.Source == "" {
		p.Source = SourceURLs
	}
	return p, nil
}

// Validate validates the pipeline definition.
func (p *Pipeline) Validate() error {
	switch p.Source {
	case SourceURLs:
		if p.Prepare == nil && p.Fetch.URLFile == "" {
			return errors.New("config: urls pipeline needs a prepare stage or a url_file")
		}
	case SourceCatalog:
		if p.Fetch.Catalog.Project == "" && p.Fetch.Catalog.DataType == "" {
			return errors.New("config: catalog pipeline needs a project or data type")
		}
	default:
		return fmt.Errorf("config: unknown source %q", p.Source)
	}

	if p.Prepare != nil {
		if p.Prepare.CSV == "" {
			return errors.New("config: prepare stage needs a csv path")
		}
		if p.Prepare.URLFile == "" {
			return errors.New("config: prepare stage needs a url_file output")
		}
	}
	return p.Fetch.Validate()
}
