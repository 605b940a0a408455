package pose

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/elliotchance/orderedmap/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrPoseNotFound = errors.New("pose not found")
	ErrInvalidPose  = errors.New("invalid pose")
)

// Library is a named set of poses kept in insertion order so saved files
// diff cleanly.
type Library struct {
	poses *orderedmap.OrderedMap[string, Data]
}

type libraryEntry struct {
	Name string `yaml:"name"`
	Pose Data   `yaml:"pose"`
}

type libraryFile struct {
	Poses []libraryEntry `yaml:"poses"`
}

func NewLibrary() *Library {
	return &Library{poses: orderedmap.NewOrderedMap[string, Data]()}
}

// Put stores d under name, replacing any previous pose but keeping its
// position.
func (l *Library) Put(name string, d Data) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrInvalidPose)
	}
	l.poses.Set(name, d)
	return nil
}

func (l *Library) Get(name string) (Data, error) {
	d, ok := l.poses.Get(name)
	if !ok {
		return Data{}, fmt.Errorf("%q: %w", name, ErrPoseNotFound)
	}
	return d, nil
}

func (l *Library) Delete(name string) bool {
	return l.poses.Delete(name)
}

func (l *Library) Names() []string {
	return l.poses.Keys()
}

func (l *Library) Len() int {
	return l.poses.Len()
}

// Save writes the library as YAML.
func (l *Library) Save(w io.Writer) error {
	file := libraryFile{Poses: make([]libraryEntry, 0, l.poses.Len())}
	for _, name := range l.poses.Keys() {
		d, _ := l.poses.Get(name)
		file.Poses = append(file.Poses, libraryEntry{Name: name, Pose: d})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode poses: %w", err)
	}
	return enc.Close()
}

// Load reads a library written by Save. Duplicate names keep the last pose.
func Load(r io.Reader) (*Library, error) {
	var file libraryFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode poses: %w", err)
	}
	l := NewLibrary()
	for i, e := range file.Poses {
		if err := l.Put(e.Name, e.Pose); err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
	}
	return l, nil
}

func LoadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (l *Library) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
