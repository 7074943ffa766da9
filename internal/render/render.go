// Package render writes expanded occurrences in the CLI's output formats.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/cyp0633/librrule/recurrence"
)

// Writer renders a list of instances to w.
type Writer func(w io.Writer, instances []recurrence.Instance) error

// Writers maps an output format name to its writer.
var Writers = map[string]Writer{
	"text": Text,
	"json": JSON,
	"xml":  XML,
}

// Text writes one line per instance: start, end when it differs, summary,
// and a marker for overridden instances.
func Text(w io.Writer, instances []recurrence.Instance) error {
	for _, inst := range instances {
		fields := []string{inst.Start.Format(time.RFC3339)}
		if inst.End.After(inst.Start) {
			fields = append(fields, inst.End.Format(time.RFC3339))
		}
		if inst.Summary != "" {
			fields = append(fields, inst.Summary)
		}
		if inst.IsException {
			fields = append(fields, "(exception)")
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

type jsonInstance struct {
	UID          string     `json:"uid,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	Exception    bool       `json:"exception,omitempty"`
	RecurrenceID *time.Time `json:"recurrence_id,omitempty"`
}

// JSON writes the instances as an indented JSON array.
func JSON(w io.Writer, instances []recurrence.Instance) error {
	out := make([]jsonInstance, 0, len(instances))
	for _, inst := range instances {
		out = append(out, jsonInstance{
			UID:          inst.UID,
			Summary:      inst.Summary,
			Start:        inst.Start,
			End:          inst.End,
			Exception:    inst.IsException,
			RecurrenceID: inst.RecurrenceID,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// XML writes an <occurrences> document.
func XML(w io.Writer, instances []recurrence.Instance) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("occurrences")
	root.CreateAttr("count", strconv.Itoa(len(instances)))

	for _, inst := range instances {
		elem := root.CreateElement("occurrence")
		if inst.UID != "" {
			elem.CreateAttr("uid", inst.UID)
		}
		if inst.IsException {
			elem.CreateAttr("exception", "true")
		}

		elem.CreateElement("start").SetText(inst.Start.Format(time.RFC3339))
		elem.CreateElement("end").SetText(inst.End.Format(time.RFC3339))
		if inst.RecurrenceID != nil {
			elem.CreateElement("recurrence-id").SetText(inst.RecurrenceID.Format(time.RFC3339))
		}
		if inst.Summary != "" {
			elem.CreateElement("summary").SetText(inst.Summary)
		}
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

// Times wraps bare instants, as produced by a single rule, for rendering.
func Times(times []time.Time) []recurrence.Instance {
	instances := make([]recurrence.Instance, 0, len(times))
	for _, t := range times {
		instances = append(instances, recurrence.Instance{
			TimeOccurrence: recurrence.TimeOccurrence{Start: t, End: t},
		})
	}
	return instances
}
