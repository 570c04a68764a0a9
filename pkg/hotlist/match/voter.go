package match

import (
	"github.com/soundtrace/hotlist/pkg/models"
)

// Bucket aggregates the result rows supporting one (alignment offset, track)
// hypothesis. Indices are positions into the lookup result slice.
type Bucket struct {
	Diff    int64
	TrackID string
	Class   models.ContentClass
	Count   int
	Indices []int
}

type bucketKey struct {
	diff    int64
	trackID string
}

// Vote performs the alignment histogram pass: every result row casts a vote
// for the (diff, track) pair it supports, where diff is the shift between the
// row's reference offset and its query event's offset. Both offsets are taken
// relative to arbitrary but fixed anchors (first query event, first result
// row), so diff is a relative alignment, not an absolute position.
//
// The winner is the first bucket to reach the maximal count in result-row
// order; later buckets with an equal count never overwrite it. Returns nil
// when either input is empty.
//
// True matches cluster at one consistent offset while false positives scatter,
// so the mode of the offset distribution identifies the track even under
// substantial noise.
func Vote(query []models.FingerprintEvent, rows []models.ReferenceMatch) *Bucket {
	if len(query) == 0 || len(rows) == 0 {
		return nil
	}

	// First occurrence of each hash in arrival order. If a hash occurs more
	// than once in the query, the first time code stands in for all of them;
	// an approximation, but a deterministic one.
	firstSeen := make(map[uint32]int64, len(query))
	for _, ev := range query {
		if _, ok := firstSeen[ev.Hash]; !ok {
			firstSeen[ev.Hash] = ev.TimeCode
		}
	}

	queryAnchor := query[0].TimeCode
	refAnchor := rows[0].RefTimeCode

	buckets := make(map[bucketKey]*Bucket)
	var winner *Bucket

	for i, r := range rows {
		measureTimeCode, ok := firstSeen[r.Hash]
		if !ok {
			// Row for a hash we never queried; the index should not
			// produce these, but a stray row must not corrupt the vote.
			continue
		}

		deltaMeasure := measureTimeCode - queryAnchor
		deltaRef := r.RefTimeCode - refAnchor
		diff := deltaRef - deltaMeasure

		key := bucketKey{diff: diff, trackID: r.TrackID}
		b := buckets[key]
		if b == nil {
			b = &Bucket{Diff: diff, TrackID: r.TrackID, Class: r.Class}
			buckets[key] = b
		}
		b.Count++
		b.Indices = append(b.Indices, i)

		// Strictly greater only: ties keep the earlier bucket.
		if winner == nil || b.Count > winner.Count {
			winner = b
		}
	}

	return winner
}
