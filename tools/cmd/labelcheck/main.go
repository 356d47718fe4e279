package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/disintegration/imaging"

	"labelcheck/pkg/capture"
	"labelcheck/pkg/catalog"
	"labelcheck/pkg/config"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/pipeline"
)

// labelcheck runs the pipeline once and prints the result as JSON.
//
//	labelcheck -img label.jpg
//	labelcheck -text "MRP Rs. 99 Net Qty 1 kg MADE IN INDIA"
//	labelcheck -url http://192.168.1.20/capture -save-processed /tmp/p.png
func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fs := flag.NewFlagSet("labelcheck", flag.ContinueOnError)
	img := fs.String("img", "", "image file to check")
	text := fs.String("text", "", "already recognized text to check")
	url := fs.String("url", "", "camera snapshot url to fetch and check")
	catalogDir := fs.String("catalog", cfg.CatalogDir, "directory with the product CSV files")
	psm := fs.String("psm", cfg.OCRPSM, "tesseract page segmentation mode")
	minimal := fs.Bool("minimal", cfg.PreprocessMinimal, "use the reduced preprocessing chain")
	saveProcessed := fs.String("save-processed", "", "write the preprocessed image to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *img == "" && *text == "" && *url == "" {
		return errors.New("one of -img, -text or -url is required")
	}

	products, err := catalog.LoadCSVDir(*catalogDir)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	cfg.OCRPSM = *psm
	cfg.PreprocessMinimal = *minimal

	var res *pipeline.Result
	if *text != "" {
		res = pipeline.New(nil, products, pipeline.Options{Match: cfg.Match()}).CheckText(*text)
	} else {
		rec, err := cfg.Recognizer()
		if err != nil {
			return err
		}
		p := pipeline.New(rec, products, pipeline.Options{
			Preprocess: cfg.Preprocess(),
			OCRTimeout: cfg.OCRTimeout,
			Match:      cfg.Match(),
		})
		raw, err := load(*img, *url, cfg)
		if err != nil {
			return err
		}
		if res, err = p.Check(context.Background(), raw); err != nil {
			return err
		}
		if *saveProcessed != "" && res.ProcessedImage != nil {
			if err := imaging.Save(res.ProcessedImage, *saveProcessed); err != nil {
				return fmt.Errorf("save processed: %w", err)
			}
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

func load(path, url string, cfg config.Config) (ocr.RawImage, error) {
	if url != "" {
		return capture.NewFetcher(cfg.FetchTimeout).Fetch(context.Background(), url)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ocr.RawImage{}, err
	}
	return ocr.RawImage{Data: data}, nil
}
