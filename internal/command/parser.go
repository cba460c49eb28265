// Package command turns chat text and button payloads into typed requests.
package command

import (
	"fmt"
	"strings"

	"github.com/ErlanBelekov/answerkey-relay/internal/catalog"
	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

type Kind int

const (
	KindStart Kind = iota
	KindHelp
	KindQuery
)

// Command is a parsed chat command. Criteria is set only for KindQuery.
type Command struct {
	Kind     Kind
	Criteria domain.Criteria
}

var names = map[string]Kind{
	"start":    KindStart,
	"help":     KindHelp,
	"aciklama": KindHelp,
	"query":    KindQuery,
	"cevap":    KindQuery,
}

// query flags in the order they must appear, keyed by normalized spelling
var flagOrder = []string{"SINAV", "TUR", "DONEM"}

// Parse reads "/name [args]". The leading slash and a "@botname" suffix are
// optional. Query arguments use the flags -sınav, -tür and -dönem in that
// order; ASCII spellings are accepted. Any flag may be left out but at
// least one is required, and each flag needs a value.
func Parse(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty message", domain.ErrInvalidCommand)
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	kind, ok := names[strings.ToLower(catalog.Normalize(name))]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown command %q", domain.ErrInvalidCommand, fields[0])
	}

	if kind != KindQuery {
		return Command{Kind: kind}, nil
	}

	criteria, err := parseQuery(fields[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindQuery, Criteria: criteria}, nil
}

func parseQuery(args []string) (domain.Criteria, error) {
	values := make(map[string]string, len(flagOrder))
	next := 0 // index into flagOrder of the earliest flag still allowed
	current := ""
	var words []string

	flush := func() error {
		if current == "" {
			return nil
		}
		if len(words) == 0 {
			return fmt.Errorf("%w: flag -%s has no value", domain.ErrInvalidCommand, strings.ToLower(current))
		}
		values[current] = strings.Join(words, " ")
		words = words[:0]
		return nil
	}

	for _, arg := range args {
		pos, isFlag := flagPosition(arg)
		if !isFlag {
			if current == "" {
				return domain.Criteria{}, fmt.Errorf("%w: %q before any flag", domain.ErrInvalidCommand, arg)
			}
			words = append(words, arg)
			continue
		}
		if pos < next {
			return domain.Criteria{}, fmt.Errorf("%w: flag %s out of order or repeated", domain.ErrInvalidCommand, arg)
		}
		if err := flush(); err != nil {
			return domain.Criteria{}, err
		}
		current = flagOrder[pos]
		next = pos + 1
	}
	if err := flush(); err != nil {
		return domain.Criteria{}, err
	}

	c := domain.Criteria{
		ExamName: values["SINAV"],
		ExamType: values["TUR"],
		Period:   values["DONEM"],
	}
	if c.IsEmpty() {
		return domain.Criteria{}, fmt.Errorf("%w: at least one of -sınav, -tür, -dönem is required", domain.ErrInvalidCommand)
	}
	return c, nil
}

func flagPosition(arg string) (int, bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return 0, false
	}
	name := catalog.Normalize(arg[1:])
	for i, f := range flagOrder {
		if name == f {
			return i, true
		}
	}
	return 0, false
}

// DecodeCallback maps a button payload to an action: "prev", "next", or an
// entry id to select.
func DecodeCallback(data string) (domain.Action, error) {
	data = strings.TrimSpace(data)
	switch data {
	case "":
		return domain.Action{}, fmt.Errorf("%w: empty callback", domain.ErrInvalidCommand)
	case "prev":
		return domain.Action{Kind: domain.ActionPrev}, nil
	case "next":
		return domain.Action{Kind: domain.ActionNext}, nil
	default:
		return domain.Action{Kind: domain.ActionSelect, EntryID: data}, nil
	}
}
