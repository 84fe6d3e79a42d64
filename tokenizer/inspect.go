package tokenizer

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

// ModelSummary describes the vocabulary of a SentencePiece model.
type ModelSummary struct {
	Pieces      int
	Normal      int
	Bytes       int
	Control     int
	UserDefined int
	Unknown     int
	Specials    []string
}

// InspectModel
// Maps the SentencePiece model at path read-only and counts its pieces by
// type. Control and user-defined pieces are collected as specials.
func InspectModel(path string) (*ModelSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mapped, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "error trying to mmap %s", path)
	}
	defer mapped.Unmap()

	var model sentencepiece.ModelProto
	if err := proto.Unmarshal(mapped, &model); err != nil {
		return nil, errors.Wrapf(err, "unable to unmarshal %s", path)
	}
	return SummarizeModel(&model), nil
}

// SummarizeModel counts the pieces of an already decoded model.
func SummarizeModel(model *sentencepiece.ModelProto) *ModelSummary {
	summary := &ModelSummary{Specials: make([]string, 0)}
	for _, piece := range model.GetPieces() {
		summary.Pieces++
		switch piece.GetType() {
		case sentencepiece.ModelProto_SentencePiece_BYTE:
			summary.Bytes++
		case sentencepiece.ModelProto_SentencePiece_CONTROL:
			summary.Control++
			summary.Specials = append(summary.Specials, piece.GetPiece())
		case sentencepiece.ModelProto_SentencePiece_USER_DEFINED:
			summary.UserDefined++
			summary.Specials = append(summary.Specials, piece.GetPiece())
		case sentencepiece.ModelProto_SentencePiece_UNKNOWN:
			summary.Unknown++
		default:
			summary.Normal++
		}
	}
	return summary
}
