package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/WatchJani/K-means/utils"
)

const compressedExt = ".zst"

// Snapshot : paths of the files written for the visualization side
type Snapshot struct {
	Points    string
	Centroids string
}

// SnapshotPaths returns the file names of the snapshot of a run
func SnapshotPaths(dir string, runId string, compress bool) Snapshot {
	ext := ".json"
	if compress {
		ext += compressedExt
	}
	return Snapshot{
		Points:    filepath.Join(dir, fmt.Sprintf("%s-points%s", runId, ext)),
		Centroids: filepath.Join(dir, fmt.Sprintf("%s-centroids%s", runId, ext)),
	}
}

// SaveSnapshot writes the points and the centroids of a result as JSON arrays
func SaveSnapshot(dir string, result utils.Result, compress bool) (Snapshot, error) {
	snap := SnapshotPaths(dir, result.RunId, compress)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return snap, errors.Wrapf(err, "failed to create %s", dir)
	}
	if err := WritePoints(snap.Points, result.Points); err != nil {
		return snap, err
	}
	if err := WritePoints(snap.Centroids, result.Centroids); err != nil {
		return snap, err
	}
	return snap, nil
}

// WritePoints writes a JSON array of points, zstd-compressed when the path ends with .zst
func WritePoints(path string, points utils.Points) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	var w io.Writer = bufWriter
	var enc *zstd.Encoder
	if strings.HasSuffix(path, compressedExt) {
		enc, err = zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return errors.Wrap(err, "failed to create zstd writer")
		}
		w = enc
	}

	if points == nil {
		points = utils.Points{}
	}
	if err = json.NewEncoder(w).Encode(points); err != nil {
		return errors.Wrap(err, "failed to encode points")
	}

	if enc != nil {
		if err = enc.Close(); err != nil {
			return errors.Wrap(err, "failed to close encoder")
		}
	}
	if err = bufWriter.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush buffer")
	}
	return file.Close()
}

// ReadPoints reads a file written by WritePoints
func ReadPoints(path string) (utils.Points, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	var r io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(path, compressedExt) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create zstd reader")
		}
		defer dec.Close()
		r = dec
	}

	var points utils.Points
	if err = json.NewDecoder(r).Decode(&points); err != nil {
		return nil, errors.Wrap(err, "failed to decode points")
	}
	return points, nil
}

// LoadSnapshot reads back both files of a snapshot
func LoadSnapshot(snap Snapshot) (utils.Points, utils.Points, error) {
	points, err := ReadPoints(snap.Points)
	if err != nil {
		return nil, nil, err
	}
	centroids, err := ReadPoints(snap.Centroids)
	if err != nil {
		return nil, nil, err
	}
	return points, centroids, nil
}
