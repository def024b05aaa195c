package hsmmlib

import (
	"compress/gzip"
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Dataset is the gob-serialized interchange format used by the generate and
// estimate commands: concatenated raw sequences, their lengths, and
// optionally the true state path of a simulation.  The core model defines no
// persistence of its own; this is the external collaborator's format.
type Dataset struct {
	Data       []float64
	Lengths    []int
	States     []int
	EventShape int
	NState     int
	MaxDur     int
	NSymbol    int
}

// WriteDataset writes a gzip-compressed gob file.
func WriteDataset(fname string, ds *Dataset) error {

	fid, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "writing dataset %s", fname)
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	defer gid.Close()

	if err := gob.NewEncoder(gid).Encode(ds); err != nil {
		return errors.Wrapf(err, "encoding dataset %s", fname)
	}

	return nil
}

// ReadDataset reads a gzip-compressed gob file written by WriteDataset.
func ReadDataset(fname string) (*Dataset, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dataset %s", fname)
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing dataset %s", fname)
	}
	defer gid.Close()

	var ds Dataset
	if err := gob.NewDecoder(gid).Decode(&ds); err != nil {
		return nil, errors.Wrapf(err, "decoding dataset %s", fname)
	}

	return &ds, nil
}

// CompareStates returns the number of positions where the state sequences x
// and y disagree, and their common length.  Panics if the lengths differ.
func CompareStates(x, y []int) (int, int) {

	if len(x) != len(y) {
		panic("Lengths are not equal")
	}

	var e int
	for t := range x {
		if x[t] != y[t] {
			e++
		}
	}

	return e, len(x)
}
