package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/WatchJani/K-means/plot"
	"github.com/WatchJani/K-means/utils"
)

// RunInfo : summary of the published run
type RunInfo struct {
	RunId      string  `json:"run_id"`
	Engine     string  `json:"engine"`
	K          int     `json:"k"`
	NumPoints  int     `json:"num_points"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Message    string  `json:"message"`
	Elapsed    string  `json:"elapsed"`
	Sizes      []int   `json:"sizes"`
	AvgSpread  float64 `json:"avg_centroid_distance"`
}

// Server : serves the latest clustering result
type Server struct {
	mutex  sync.RWMutex
	result *utils.Result
}

func NewServer() *Server {
	return &Server{}
}

// Publish replaces the served result
func (s *Server) Publish(result utils.Result) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.result = &result
}

func (s *Server) current() (utils.Result, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.result == nil {
		return utils.Result{}, false
	}
	return *s.result, true
}

// Router builds the gin engine of the results API
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if utils.Debug {
		r.Use(gin.Logger())
	}

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api", s.requireResult)
	api.GET("/run", s.getRun)
	api.GET("/centroids", s.getCentroids)
	api.GET("/points", s.getPoints)
	api.GET("/geojson", s.getGeoJSON)
	api.GET("/plot/scatter", s.getScatter)
	api.GET("/plot/bar", s.getBar)
	return r
}

// ListenAndServe serves the API on address until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	srv := &http.Server{Addr: address, Handler: s.Router()}
	errs := make(chan error, 1)
	go func() {
		log.Printf("Serving results on: http://%s/api/run", address)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

/*---------------------------------------------------- HANDLERS ------------------------------------------------------*/

const resultKey = "result"

func (s *Server) requireResult(c *gin.Context) {
	result, ok := s.current()
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No clustering result available"})
		return
	}
	c.Set(resultKey, result)
	c.Next()
}

func resultOf(c *gin.Context) utils.Result {
	return c.MustGet(resultKey).(utils.Result)
}

func (s *Server) getRun(c *gin.Context) {
	result := resultOf(c)
	c.JSON(http.StatusOK, RunInfo{
		RunId:      result.RunId,
		Engine:     result.Engine,
		K:          len(result.Centroids),
		NumPoints:  len(result.Points),
		Iterations: result.Iterations,
		Converged:  result.Converged,
		Message:    result.Message,
		Elapsed:    result.Elapsed.String(),
		Sizes:      result.Sizes(),
		AvgSpread:  utils.GetAvgDistanceOfSet(result.Centroids),
	})
}

func (s *Server) getCentroids(c *gin.Context) {
	c.JSON(http.StatusOK, resultOf(c).Centroids)
}

// getPoints returns the points, optionally of a single cluster (?cluster=i) and paginated (?offset=&limit=)
func (s *Server) getPoints(c *gin.Context) {
	result := resultOf(c)
	points := result.Points

	if raw, ok := c.GetQuery("cluster"); ok {
		cid, err := strconv.Atoi(raw)
		if err != nil || cid < 0 || cid >= len(result.Centroids) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cluster parameter"})
			return
		}
		label := result.Centroids[cid].Label
		filtered := make(utils.Points, 0)
		for _, p := range points {
			if p.Label == label {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(len(points))))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	offset = min(offset, len(points))
	end := offset + min(limit, len(points)-offset)

	c.Header("X-Total-Count", strconv.Itoa(len(points)))
	page := points[offset:end]
	if page == nil {
		page = utils.Points{}
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getGeoJSON(c *gin.Context) {
	data, err := plot.FeatureCollection(resultOf(c)).MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

func (s *Server) getScatter(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := plot.RenderScatter(c.Writer, resultOf(c)); err != nil {
		log.Printf("--> scatter rendering failure: %v", err)
	}
}

func (s *Server) getBar(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := plot.RenderBar(c.Writer, resultOf(c)); err != nil {
		log.Printf("--> bar rendering failure: %v", err)
	}
}
