package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/sharednotes/sharednotes.go"
)

type folderView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
}

func viewOf(f sharednotes.Folder) folderView {
	return folderView{
		ID:      f.ID().String(),
		Name:    f.Name(),
		Default: f.ID().Name == sharednotes.DefaultFolderRecordName,
	}
}

// write prints folders as a JSON array when list is set, or as a single JSON object otherwise.
// The text format is the same in both cases.
func write(w io.Writer, format Format, folders []sharednotes.Folder, list bool) error {
	views := make([]folderView, 0, len(folders))
	for _, f := range folders {
		views = append(views, viewOf(f))
	}

	if format == FormatText {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tID\tDEFAULT")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", v.Name, v.ID, v.Default)
		}
		return tw.Flush()
	}

	var v any = views
	if !list && len(views) == 1 {
		v = views[0]
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
