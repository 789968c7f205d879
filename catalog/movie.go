/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog supplies the candidate movies a room swipes through.
package catalog

import (
	"context"
	"errors"
)

// ErrEmpty is returned by sources that produced no movies.
var ErrEmpty = errors.New("catalog: no movies available")

// Movie is a single swipe candidate.
type Movie struct {
	ID     int64    `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Year   int      `json:"year,omitempty" yaml:"year"`
	Rating float64  `json:"rating" yaml:"rating"`
	Genres []string `json:"genres" yaml:"genres"`
	Desc   string   `json:"desc" yaml:"desc"`
	Poster string   `json:"poster,omitempty" yaml:"poster"`
}

// Source returns the ordered candidate list for a new room.
type Source interface {
	Candidates(ctx context.Context) ([]Movie, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Movie, error)

func (f SourceFunc) Candidates(ctx context.Context) ([]Movie, error) {
	return f(ctx)
}

type static []Movie

// Static returns a Source that always yields a copy of movies.
func Static(movies []Movie) Source {
	return static(clone(movies))
}

func (s static) Candidates(_ context.Context) ([]Movie, error) {
	if len(s) == 0 {
		return nil, ErrEmpty
	}

	return clone(s), nil
}

func clone(movies []Movie) []Movie {
	out := make([]Movie, len(movies))
	for i, m := range movies {
		m.Genres = append([]string(nil), m.Genres...)
		out[i] = m
	}

	return out
}

// Fallback returns the built-in catalog used when no other source is
// configured or the configured source fails.
func Fallback() []Movie {
	return clone(fallbackMovies)
}

var fallbackMovies = []Movie{
	{ID: 1, Title: "The Adam Project", Year: 2022, Rating: 6.7, Genres: []string{"Action", "Sci-Fi", "Comedy"}, Desc: "A time-traveling pilot teams up with his younger self and his late father to come to terms with his past while saving the future.", Poster: posterBase + "/wFjboE0aFZNbVOF05fzrka9Fqyx.jpg"},
	{ID: 2, Title: "Glass Onion", Year: 2022, Rating: 7.1, Genres: []string{"Comedy", "Crime", "Mystery"}, Desc: "Tech billionaire Miles Bron invites his friends for a getaway on his private Greek island.", Poster: posterBase + "/vDGr1YdrlfbU9wxTOdpf3zChmv9.jpg"},
	{ID: 3, Title: "All Quiet on the Western Front", Year: 2022, Rating: 7.8, Genres: []string{"Drama", "War"}, Desc: "A young German soldier endures the dehumanizing horrors of trench warfare.", Poster: posterBase + "/2IRjbi9cADuDMKmqmGGhlad15KV.jpg"},
	{ID: 4, Title: "Guillermo del Toro's Pinocchio", Year: 2022, Rating: 7.6, Genres: []string{"Animation", "Fantasy", "Drama"}, Desc: "A father's wish magically brings a wooden boy to life in Italy.", Poster: posterBase + "/vx1u0uwxdlhV2MUzj4VqcMIYO2l.jpg"},
	{ID: 5, Title: "The Sea Beast", Year: 2022, Rating: 7.1, Genres: []string{"Animation", "Adventure", "Family"}, Desc: "In an era when terrifying beasts roamed the seas, monster hunters were celebrated heroes.", Poster: posterBase + "/aZKKnCuz8HHzJ4BsJiB2OBlYmMi.jpg"},
	{ID: 6, Title: "Enola Holmes 2", Year: 2022, Rating: 7.2, Genres: []string{"Adventure", "Comedy", "Crime"}, Desc: "Now a detective-for-hire, Enola Holmes takes on her first official case.", Poster: posterBase + "/tegBpjM4PnXMBBwexmMKGOqMBOh.jpg"},
	{ID: 7, Title: "Don't Look Up", Year: 2021, Rating: 7.2, Genres: []string{"Comedy", "Drama", "Sci-Fi"}, Desc: "Two astronomers must warn mankind of an approaching comet that will destroy Earth.", Poster: posterBase + "/th4E1yqsE8DGpAseLiUrI60Hf9V.jpg"},
	{ID: 8, Title: "The Power of the Dog", Year: 2021, Rating: 6.9, Genres: []string{"Drama", "Western"}, Desc: "Charismatic rancher Phil Burbank inspires fear and awe in those around him.", Poster: posterBase + "/kEy48iCzGnp0ao1cZbNeWR6yIhC.jpg"},
	{ID: 9, Title: "Red Notice", Year: 2021, Rating: 6.8, Genres: []string{"Action", "Comedy", "Thriller"}, Desc: "An FBI profiler pursuing the world's most wanted art thief becomes his reluctant partner.", Poster: posterBase + "/lAXONicR4G1DhluMqjeT7bpSNH3.jpg"},
	{ID: 10, Title: "The Mitchells vs. the Machines", Year: 2021, Rating: 7.7, Genres: []string{"Animation", "Comedy", "Sci-Fi"}, Desc: "A quirky family's road trip is upended by the robot apocalypse.", Poster: posterBase + "/mI2Di7HmskQQ34kz0ib8EpmenX3.jpg"},
	{ID: 11, Title: "Tick, Tick... Boom!", Year: 2021, Rating: 7.5, Genres: []string{"Drama", "Music"}, Desc: "A promising young theater composer navigates love, friendship, and pressure.", Poster: posterBase + "/tnGxhen5VN0RFGGOqj22GiRYsfn.jpg"},
	{ID: 12, Title: "Nimona", Year: 2023, Rating: 7.6, Genres: []string{"Animation", "Action", "Fantasy"}, Desc: "A knight framed for a crime finds an unlikely ally in a shape-shifting teen.", Poster: posterBase + "/3FcvHTnQOQVFfnS4CHpqdwByBuB.jpg"},
	{ID: 13, Title: "Extraction 2", Year: 2023, Rating: 7.1, Genres: []string{"Action", "Thriller"}, Desc: "Tyler Rake is back as a fearless black market mercenary.", Poster: posterBase + "/7gKI9hpEMcZUQpNgKrkDzJpbnNS.jpg"},
	{ID: 14, Title: "The Killer", Year: 2023, Rating: 6.7, Genres: []string{"Crime", "Thriller"}, Desc: "An assassin battles his employers and himself on an international manhunt.", Poster: posterBase + "/e7Jvsiy1ljEEqpMPL4kDOf3SRgq.jpg"},
	{ID: 15, Title: "Leave the World Behind", Year: 2023, Rating: 6.5, Genres: []string{"Drama", "Thriller", "Mystery"}, Desc: "A family's vacation is upended by two strangers bearing news of a blackout.", Poster: posterBase + "/29rhl1xopxA7JlGVVsf1UHfYPvN.jpg"},
}
