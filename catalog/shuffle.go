/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package catalog

import (
	"context"
	"math/rand"
)

// Shuffle returns a shuffled copy of movies.
func Shuffle(movies []Movie) []Movie {
	out := clone(movies)

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}

type shuffled struct {
	src Source
}

// Shuffled wraps src so that every call returns its own ordering.
func Shuffled(src Source) Source {
	return shuffled{src: src}
}

func (s shuffled) Candidates(ctx context.Context) ([]Movie, error) {
	movies, err := s.src.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	return Shuffle(movies), nil
}
