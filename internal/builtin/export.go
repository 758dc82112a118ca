package builtin

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
)

// NewExport creates an export step from configuration parameters. Output
// directory and file extension fall back to the batcher settings when not
// configured on the step itself.
func NewExport(params map[string]any) (invoke.Command, error) {
	mode := batch.ExportEachLayer
	if name := batch.GetStringParam(params, "export_mode", ""); name != "" {
		parsed, err := batch.ParseExportMode(name)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	options := batch.ExportOptions{
		OutputDirectory:                 batch.GetStringParam(params, "output_directory", ""),
		FileExtension:                   batch.GetStringParam(params, "file_extension", ""),
		Mode:                            mode,
		SingleImageFilenamePattern:      batch.GetStringParam(params, "single_image_name_pattern", ""),
		UseFileExtensionInItemName:      batch.GetBoolParam(params, "use_file_extension_in_item_name", false),
		ConvertFileExtensionToLowercase: batch.GetBoolParam(params, "convert_file_extension_to_lowercase", false),
		PreserveLayerName:               batch.GetBoolParam(params, "preserve_layer_name_after_export", false),
	}

	return batch.NewExportStep(options), nil
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register(batch.ExportProcedureName, batch.ProcedureSpec{
		DisplayName: "Export",
		NameOnly:    true,
		Factory:     NewExport,
	}); err != nil {
		panic(fmt.Sprintf("failed to register export procedure: %v", err))
	}
}
