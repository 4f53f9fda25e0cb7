package storage

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// responseFile is the YAML shape of a participant submission. Pointer
// fields keep absent keys distinguishable from false answers; the
// scoring engine, not the decoder, decides what is required.
type responseFile struct {
	Participant string         `yaml:"participant"`
	Trial       string         `yaml:"trial"`
	External    *bool          `yaml:"external"`
	Derived     *bool          `yaml:"derived"`
	Markers     map[int]string `yaml:"markers"`
}

// ReadResponse decodes a participant response file. It never fills
// defaults: whatever the file omits stays unset so the scoring engine
// can reject the submission as incomplete.
func ReadResponse(path string) (model.Response, error) {
	const op = "storage.readResponse"

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Response{}, errs.WrapKind(op, ErrMissingFile, err)
		}
		return model.Response{}, errs.Wrap(op, err)
	}

	var rf responseFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return model.Response{}, errs.WrapKind(op, ErrMalformedFile, err)
	}

	response := model.Response{
		Participant: rf.Participant,
		Trial:       rf.Trial,
		External:    rf.External,
		Derived:     rf.Derived,
	}
	if rf.Markers != nil {
		response.Markers = make(map[model.MarkerID]model.MarkerState, len(rf.Markers))
		for id, name := range rf.Markers {
			state, err := model.ParseState(name)
			if err != nil {
				return model.Response{}, errs.Kindf(op, ErrMalformedFile, "marker %d has unknown state %q", id, name)
			}
			response.Markers[model.MarkerID(id)] = state
		}
	}
	return response, nil
}

// WriteResponse serializes a response to YAML. Used by the simulate
// harness to synthesize submission files; unset fields are omitted the
// same way a participant could leave a form field blank.
func WriteResponse(path string, response model.Response) error {
	const op = "storage.writeResponse"

	rf := responseFile{
		Participant: response.Participant,
		Trial:       response.Trial,
		External:    response.External,
		Derived:     response.Derived,
	}
	if response.Markers != nil {
		rf.Markers = make(map[int]string, len(response.Markers))
		for id, state := range response.Markers {
			rf.Markers[int(id)] = state.String()
		}
	}

	raw, err := yaml.Marshal(&rf)
	if err != nil {
		return errs.Wrap(op, err)
	}
	return errs.Wrap(op, os.WriteFile(path, raw, resultFilePermission))
}
