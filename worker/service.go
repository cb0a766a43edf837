package worker

import (
	"log"
	"sync"

	"github.com/WatchJani/K-means/dataset"
	"github.com/WatchJani/K-means/mapreduce"
	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/utils"
)

// Service : holds the local copy of the dataset and answers the coordinator commands
type Service struct {
	Source dataset.Source
	Engine *mapreduce.Engine
	Codec  protocol.Codec
	mutex  sync.Mutex // the points are relabelled in place by every pass
	points utils.Points
}

// NewService creates a worker service loading its dataset from src
func NewService(src dataset.Source, parallelism int) *Service {
	return &Service{
		Source: src,
		Engine: mapreduce.New(parallelism),
		Codec:  protocol.JSONCodec{},
	}
}

// Len returns the number of points currently loaded
func (s *Service) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.points)
}

// Prepare loads the full dataset of n points; loading the same size again is a no-op
func (s *Service) Prepare(n int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.points) == n {
		utils.Debugf("--> worker: %d point(s) already loaded", n)
		return nil
	}
	points, err := s.Source.Load(n)
	if err != nil {
		return err
	}
	if len(points) != n {
		return utils.Configuration("source produced %d point(s) instead of %d", len(points), n)
	}
	s.points = points
	log.Printf("--> worker: loaded %d point(s).", n)
	return nil
}

/*------------------------------------------------------- MAP --------------------------------------------------------*/

// Aggregate classifies the points of the payload range and returns one aggregate per cluster
func (s *Service) Aggregate(p protocol.Payload) ([]utils.PartialAggregate, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	chunk, err := s.slice(p)
	if err != nil {
		return nil, err
	}
	utils.Debugf("--> worker: aggregating [%d, %d) over %d centroid(s)", p.Start, p.End, len(p.Centroids))
	return s.Engine.Run(chunk, p.Centroids), nil
}

// Relabel assigns the points of the payload range to the payload centroids and returns them
func (s *Service) Relabel(p protocol.Payload) (utils.Points, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	chunk, err := s.slice(p)
	if err != nil {
		return nil, err
	}
	s.Engine.Classify(chunk, p.Centroids)
	return chunk.Copy(), nil
}

func (s *Service) slice(p protocol.Payload) (utils.Points, error) {
	if s.points == nil {
		return nil, utils.Malformed(nil, "dataset not prepared")
	}
	if p.Start < 0 || p.End > len(s.points) || p.Start > p.End {
		return nil, utils.Malformed(nil, "range [%d, %d) out of %d point(s)", p.Start, p.End, len(s.points))
	}
	return s.points[p.Start:p.End], nil
}

/*----------------------------------------------------- DISPATCH -----------------------------------------------------*/

// Handle executes one command and returns the response line body; stop is true after TERMINATE
func (s *Service) Handle(cmd protocol.Command, data string) (resp string, stop bool) {
	switch cmd {
	case protocol.Number:
		n, err := protocol.ParseNumber(data)
		if err == nil {
			err = s.Prepare(n)
		}
		if err != nil {
			return failure(cmd, err), false
		}
		return protocol.OK, false

	case protocol.KMeans:
		p, err := s.Codec.DecodePayload([]byte(data))
		if err != nil {
			return failure(cmd, err), false
		}
		partials, err := s.Aggregate(p)
		if err != nil {
			return failure(cmd, err), false
		}
		out, err := s.Codec.EncodeAggregates(partials, p.Centroids)
		if err != nil {
			return failure(cmd, err), false
		}
		return string(out), false

	case protocol.Location:
		p, err := s.Codec.DecodePayload([]byte(data))
		if err != nil {
			return failure(cmd, err), false
		}
		points, err := s.Relabel(p)
		if err != nil {
			return failure(cmd, err), false
		}
		out, err := s.Codec.EncodePoints(points)
		if err != nil {
			return failure(cmd, err), false
		}
		return string(out), false

	case protocol.Terminate:
		return protocol.OK, true
	}
	return protocol.UnknownCommand(cmd), false
}

func failure(cmd protocol.Command, err error) string {
	log.Printf("--> worker: %s failure: %v", cmd, err)
	return protocol.ErrorResponse(err.Error())
}
