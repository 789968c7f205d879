/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultTMDBBaseURL = "https://api.themoviedb.org/3"

	posterBase = "https://image.tmdb.org/t/p/w500"
)

var genreNames = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Sci-Fi",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

// TMDBOptions configures the TMDB discover source.
type TMDBOptions struct {
	APIKey   string
	BaseURL  string
	Pages    int
	Region   string
	Provider int
	Timeout  time.Duration
	Client   *http.Client
}

// TMDB pulls popular titles for one streaming provider from The Movie
// Database discover endpoint.
type TMDB struct {
	opts   TMDBOptions
	client *http.Client
}

func NewTMDB(opts TMDBOptions) *TMDB {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultTMDBBaseURL
	}
	if opts.Pages < 1 {
		opts.Pages = 5
	}
	if opts.Region == "" {
		opts.Region = "US"
	}
	if opts.Provider == 0 {
		opts.Provider = 8
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &TMDB{opts: opts, client: client}
}

type discoverPage struct {
	Results []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		VoteAverage float64 `json:"vote_average"`
		GenreIDs    []int   `json:"genre_ids"`
		Overview    string  `json:"overview"`
		PosterPath  string  `json:"poster_path"`
	} `json:"results"`
}

// Candidates walks the configured number of discover pages. A failure
// after at least one page succeeded returns what was collected.
func (t *TMDB) Candidates(ctx context.Context) ([]Movie, error) {
	var movies []Movie

	for page := 1; page <= t.opts.Pages; page++ {
		results, err := t.fetchPage(ctx, page)
		if err != nil {
			if len(movies) > 0 {
				return movies, nil
			}

			return nil, err
		}
		if len(results.Results) == 0 {
			break
		}

		for _, r := range results.Results {
			movies = append(movies, toMovie(r.ID, r.Title, r.ReleaseDate, r.VoteAverage, r.GenreIDs, r.Overview, r.PosterPath))
		}
	}

	if len(movies) == 0 {
		return nil, ErrEmpty
	}

	return movies, nil
}

func (t *TMDB) fetchPage(ctx context.Context, page int) (*discoverPage, error) {
	q := url.Values{}
	q.Set("api_key", t.opts.APIKey)
	q.Set("with_watch_providers", strconv.Itoa(t.opts.Provider))
	q.Set("watch_region", t.opts.Region)
	q.Set("sort_by", "popularity.desc")
	q.Set("page", strconv.Itoa(page))
	q.Set("vote_count.gte", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"/discover/movie?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tmdb request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tmdb page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tmdb page %d: unexpected status %s", page, resp.Status)
	}

	var out discoverPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tmdb page %d: %w", page, err)
	}

	return &out, nil
}

func toMovie(id int64, title, releaseDate string, vote float64, genreIDs []int, overview, posterPath string) Movie {
	m := Movie{
		ID:     id,
		Title:  title,
		Rating: math.Round(vote*10) / 10,
		Genres: make([]string, 0, len(genreIDs)),
		Desc:   overview,
	}

	if len(releaseDate) >= 4 {
		m.Year, _ = strconv.Atoi(releaseDate[:4])
	}

	for _, g := range genreIDs {
		if name, ok := genreNames[g]; ok {
			m.Genres = append(m.Genres, name)
		}
	}

	if posterPath != "" {
		m.Poster = posterBase + posterPath
	}

	return m
}
