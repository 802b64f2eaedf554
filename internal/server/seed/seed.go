// Package seed imports the quest catalog from a YAML file.
//
// The catalog is read-only through the API; operators keep it in a file like
//
//	quests:
//	  - name: Old town
//	    description: A walk through the old town
//	    preview_file: previews/old-town.jpg
//	    time: 90
//	    distance: 3
//	    locations:
//	      - latitude: 56.9496
//	        longitude: 24.1052
//	        story: ...
//	        epilog: ...
//
// and load it with the seed command. Quests are matched by name; the
// locations of every listed quest are replaced.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type File struct {
	Quests []QuestSpec `yaml:"quests"`
}

// QuestSpec is one catalog entry. At most one of PreviewURL and PreviewFile
// may be set; PreviewFile is uploaded to object storage on Apply.
type QuestSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	PreviewURL  string         `yaml:"preview_url"`
	PreviewFile string         `yaml:"preview_file"`
	Time        int            `yaml:"time"`
	Distance    int            `yaml:"distance"`
	Locations   []LocationSpec `yaml:"locations"`
}

type LocationSpec struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Story     string  `yaml:"story"`
	Epilog    string  `yaml:"epilog"`
}

// Parse decodes and validates a catalog file. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads the catalog at path. Relative preview_file paths are resolved
// against the directory of path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range f.Quests {
		p := f.Quests[i].PreviewFile
		if p != "" && !filepath.IsAbs(p) {
			f.Quests[i].PreviewFile = filepath.Join(dir, p)
		}
	}
	return f, nil
}

func (f *File) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(f.Quests))

	for i, q := range f.Quests {
		where := fmt.Sprintf("quests[%d]", i)
		if q.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else if seen[q.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate quest name %q", where, q.Name))
		}
		seen[q.Name] = true

		if q.PreviewURL != "" && q.PreviewFile != "" {
			errs = append(errs, fmt.Errorf("%s: preview_url and preview_file are mutually exclusive", where))
		}
		if q.Time < 0 || q.Distance < 0 {
			errs = append(errs, fmt.Errorf("%s: time and distance must not be negative", where))
		}

		for j, l := range q.Locations {
			if l.Latitude < -90 || l.Latitude > 90 {
				errs = append(errs, fmt.Errorf("%s.locations[%d]: latitude %v out of range", where, j, l.Latitude))
			}
			if l.Longitude < -180 || l.Longitude > 180 {
				errs = append(errs, fmt.Errorf("%s.locations[%d]: longitude %v out of range", where, j, l.Longitude))
			}
		}
	}
	return errors.Join(errs...)
}
