package commands

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// IndexCmd implements the 'index' command.
type IndexCmd struct {
	Source string `short:"s" help:"Source directory (overrides config)" type:"path"`
	Bucket string `short:"b" help:"Only list one bucket (pages or posts)"`
	Format string `short:"f" help:"Output format (table, markdown, csv)" enum:"table,markdown,csv" default:"table"`

	out io.Writer
}

func (i *IndexCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, i.Source, "")
	if err != nil {
		return err
	}
	idx, _, err := pipeline.New(cfg).Collect(contextOf(g))
	if err != nil {
		return err
	}

	w := i.out
	if w == nil {
		w = os.Stdout
	}
	renderTable(w, i.Format, table.Row{"Bucket", "Key", "URL", "Date", "Title"}, indexRows(idx, i.Bucket))
	return nil
}

func indexRows(idx *site.Index, only string) []table.Row {
	var rows []table.Row
	for _, bucket := range []string{site.BucketPages, site.BucketPosts} {
		if only != "" && only != bucket {
			continue
		}
		for _, it := range idx.Items(bucket) {
			date := ""
			if d, ok := site.ParseDate(it.FrontMatter[site.FieldDate]); ok {
				date = d.Format("2006-01-02")
			}
			title, _ := it.FrontMatter[site.FieldTitle].(string)
			rows = append(rows, table.Row{bucket, it.Key(), it.URL(), date, title})
		}
	}
	return rows
}
