package domain

import "iter"

// Chunks adapts a ChunkStream to a range-over-func sequence. The stream is
// closed when the loop ends, including on break. A terminal failure is yielded
// once as the final pair.
func Chunks(s ChunkStream) iter.Seq2[StreamChunk, error] {
	return func(yield func(StreamChunk, error) bool) {
		defer s.Close()

		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}

		if err := s.Err(); err != nil {
			yield(StreamChunk{}, err)
		}
	}
}
