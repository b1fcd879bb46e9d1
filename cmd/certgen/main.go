// Command certgen renders certificates from the command line using a
// layout saved from the editor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/youruser/certgen/internal/config"
	"github.com/youruser/certgen/internal/dataset"
	"github.com/youruser/certgen/internal/export"
	imagepkg "github.com/youruser/certgen/internal/image"
	"github.com/youruser/certgen/internal/layout"
	"github.com/youruser/certgen/internal/logger"
	"github.com/youruser/certgen/internal/mapping"
	"github.com/youruser/certgen/internal/util"
)

type inputs struct {
	configPath   string
	templatePath string
	dataPath     string
	layoutPath   string
	outPath      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	in := &inputs{}
	root := &cobra.Command{
		Use:           "certgen",
		Short:         "Batch-generate certificate images from a template and a dataset",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&in.configPath, "config", "", "path to the TOML config file")
	root.PersistentFlags().StringVarP(&in.templatePath, "template", "t", "", "template image (.png, .jpg, .webp)")
	root.PersistentFlags().StringVarP(&in.layoutPath, "layout", "l", "", "layout JSON saved from the editor")
	root.MarkPersistentFlagRequired("template")
	root.MarkPersistentFlagRequired("layout")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render every row into a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, in)
		},
	}
	exportCmd.Flags().StringVarP(&in.dataPath, "data", "d", "", "dataset (.csv, .tsv, .xlsx)")
	exportCmd.Flags().StringVarP(&in.outPath, "out", "o", "certificates.zip", "output archive")
	exportCmd.MarkFlagRequired("data")

	var row int
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a single row to a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, in, row)
		},
	}
	previewCmd.Flags().StringVarP(&in.dataPath, "data", "d", "", "dataset (.csv, .tsv, .xlsx)")
	previewCmd.Flags().StringVarP(&in.outPath, "out", "o", "preview.png", "output image")
	previewCmd.Flags().IntVar(&row, "row", 1, "1-based data row to render")

	root.AddCommand(exportCmd, previewCmd)
	return root
}

type job struct {
	cfg      config.Config
	renderer *imagepkg.Renderer
	tpl      imagepkg.Template
	lay      layout.Layout
	cols     *mapping.Set
	data     dataset.Dataset
}

func load(in *inputs, needData bool) (*job, error) {
	cfg, err := config.Load(in.configPath)
	if err != nil {
		return nil, err
	}
	r, err := imagepkg.NewRenderer(imagepkg.Options{
		FontPath:  cfg.Render.FontPath,
		FontRatio: cfg.Render.FontRatio,
		TextColor: cfg.Render.TextColor,
	})
	if err != nil {
		return nil, err
	}
	tpl, err := imagepkg.LoadTemplateFile(in.templatePath)
	if err != nil {
		return nil, err
	}
	lay, err := layout.LoadFile(in.layoutPath)
	if err != nil {
		return nil, err
	}
	store, cols := lay.Store()
	lay.Boxes = store.All()
	j := &job{cfg: cfg, renderer: r, tpl: tpl, lay: lay, cols: cols}
	if in.dataPath != "" {
		ds, err := dataset.Loader{MaxRows: cfg.Dataset.MaxRows}.LoadFile(in.dataPath)
		if err != nil {
			return nil, err
		}
		j.data = ds
	} else if needData {
		return nil, fmt.Errorf("--data is required")
	}
	return j, nil
}

func runExport(cmd *cobra.Command, in *inputs) error {
	j, err := load(in, true)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), logger.ParseLevel(j.cfg.Log.Level))
	e := &export.Exporter{
		Renderer: j.renderer,
		Progress: func(done, total int) {
			log.Debug("rendered", "row", done, "of", total)
		},
	}
	out, err := e.Export(cmd.Context(), j.tpl.Image, j.lay.Boxes, j.cols, j.data)
	if err != nil {
		return err
	}
	if err := util.WriteFile(in.outPath, out); err != nil {
		return err
	}
	log.Info("export finished", "rows", j.data.Len(), "out", in.outPath)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d certificates to %s\n", j.data.Len(), in.outPath)
	return nil
}

func runPreview(cmd *cobra.Command, in *inputs, row int) error {
	j, err := load(in, false)
	if err != nil {
		return err
	}
	var cells []string
	if j.data.Len() > 0 {
		if row < 1 || row > j.data.Len() {
			return fmt.Errorf("row %d out of range 1..%d", row, j.data.Len())
		}
		cells = j.data.Rows[row-1]
	}
	img, err := j.renderer.Render(j.tpl.Image, j.lay.Boxes, j.cols, cells, j.data.Columns)
	if err != nil {
		return err
	}
	b, err := imagepkg.PNGBytes(img)
	if err != nil {
		return err
	}
	if err := util.WriteFile(in.outPath, b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", in.outPath)
	return nil
}
