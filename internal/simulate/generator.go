package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// generated pairs a fabricated response with its corruption case so
// verification can predict the scoring outcome.
type generated struct {
	response model.Response
	kind     int
}

// incomplete reports whether the case omits a required answer.
func (g generated) incomplete() bool {
	switch g.kind {
	case caseMissingExternal, caseMissingDerived, caseMissingMarker:
		return true
	default:
		return false
	}
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomCase picks a corruption case uniformly.
func randomCase() int {
	n, _ := rand.Int(rand.Reader, big.NewInt(responseCaseCount))
	return int(n.Int64())
}

// generateResponses fabricates one response per participant against the
// given ground truth, spreading them across corruption cases.
func generateResponses(ctx context.Context, config *Config, trial string, assignment model.Assignment, truth bool, stats *Stats) ([]generated, error) {
	logger.Get().Info(ctx, "generating responses",
		logger.Int("participants", config.Participants),
		logger.String("trial", trial))

	// Pre-allocate participant IDs to ensure uniqueness
	participantIDs := make([]string, config.Participants)
	for i := 0; i < config.Participants; i++ {
		participantIDs[i] = uuid.New().String()
	}

	type genResult struct {
		index int
		gen   generated
		err   error
	}

	resultChan := make(chan genResult, config.Participants)

	// Use worker pool for response generation
	workerCount := minInt(config.Workers, config.Participants)
	perWorker := config.Participants / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.Participants // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- genResult{index: i, err: ctx.Err()}
					return
				default:
					gen := generateSingleResponse(participantIDs[i], trial, assignment, truth)
					resultChan <- genResult{index: i, gen: gen}
				}
			}
		}(start, end)
	}

	// Collect results
	out := make([]generated, config.Participants)
	for i := 0; i < config.Participants; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during response generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate response %d: %w", result.index, result.err)
			}
			out[result.index] = result.gen
		}
	}

	stats.ResponsesGenerated += len(out)
	logger.Get().Info(ctx, "generated responses successfully", logger.Int("count", len(out)))

	return out, nil
}

// generateSingleResponse fabricates one participant's answers, corrupted
// per a randomly drawn case.
func generateSingleResponse(participant, trial string, assignment model.Assignment, truth bool) generated {
	kind := randomCase()

	external := truth
	derived := assignment.AnyFlagged()
	markers := make(map[model.MarkerID]model.MarkerState, len(assignment))
	for id, state := range assignment {
		markers[id] = state
	}

	switch kind {
	case caseWrongExternal:
		external = !external
	case caseWrongDerived:
		derived = !derived
	case caseWrongMarker:
		flipOneMarker(markers)
	case caseAllWrong:
		external = !external
		derived = !derived
		for id := range markers {
			markers[id] = flip(markers[id])
		}
	}

	response := model.Response{
		Participant: participant,
		Trial:       trial,
		External:    &external,
		Derived:     &derived,
		Markers:     markers,
	}

	switch kind {
	case caseMissingExternal:
		response.External = nil
	case caseMissingDerived:
		response.Derived = nil
	case caseMissingMarker:
		dropOneMarker(response.Markers)
	}

	return generated{response: response, kind: kind}
}

// flipOneMarker inverts the state of a uniformly chosen marker.
func flipOneMarker(markers map[model.MarkerID]model.MarkerState) {
	if len(markers) == 0 {
		return
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(markers))))
	i := n.Int64()
	for id := range markers {
		if i == 0 {
			markers[id] = flip(markers[id])
			return
		}
		i--
	}
}

// dropOneMarker removes a uniformly chosen marker answer.
func dropOneMarker(markers map[model.MarkerID]model.MarkerState) {
	if len(markers) == 0 {
		return
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(markers))))
	i := n.Int64()
	for id := range markers {
		if i == 0 {
			delete(markers, id)
			return
		}
		i--
	}
}

func flip(s model.MarkerState) model.MarkerState {
	if s == model.StateFlagged {
		return model.StateNormal
	}
	return model.StateFlagged
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
