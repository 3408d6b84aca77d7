package inline

import (
	"encoding/json"
	"io"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/source"
)

// Output is the final JSON document of inline mode. Download runs print it after
// the event stream; fetch prints it alone.
type Output struct {
	URL      string              `json:"url"`
	Series   *source.Series      `json:"series"`
	Episodes []int               `json:"episodes,omitempty"`
	Results  []downloader.Result `json:"results,omitempty"`
}

func writeJson(out io.Writer, output *Output) error {
	if output.Series == nil {
		output.Series = &source.Series{}
	}

	data, err := json.Marshal(output)
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}
