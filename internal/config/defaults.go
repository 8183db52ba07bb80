package config

import "runtime"

const (
	defaultDatasetDir           = "demo"
	defaultAnnotationDir        = "annotation"
	defaultResultsDirName       = "results"
	defaultStateDir             = "~/.local/share/imgsim"
	defaultExtractBinary        = "extract"
	defaultIndexBinary          = "makeIndex"
	defaultMatchBinary          = "match"
	defaultRetrieveBinary       = "retrieve"
	defaultEngineMode           = "0"
	defaultMatchType            = 1
	defaultEngineTimeout        = 3600
	defaultBreakerFailures      = 3
	defaultImageExtension       = ".jpg"
	defaultFeatureSuffix        = ".DB.cdvs"
	defaultImageListName        = "image_list.txt"
	defaultIndexName            = "index"
	defaultGroundTruthName      = "ground-truth-annotations.txt"
	defaultRetrievalTraceSuffix = "-retrieval.txt"
	defaultMatchTraceSuffix     = "-match.txt"
	defaultMetadataSuffix       = ".csv"
	defaultRenderColumns        = 4
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatasetDir:    defaultDatasetDir,
			AnnotationDir: defaultAnnotationDir,
			StateDir:      defaultStateDir,
		},
		Engine: Engine{
			ExtractBinary:   defaultExtractBinary,
			IndexBinary:     defaultIndexBinary,
			MatchBinary:     defaultMatchBinary,
			RetrieveBinary:  defaultRetrieveBinary,
			Mode:            defaultEngineMode,
			MatchType:       defaultMatchType,
			OneWay:          true,
			TimeoutSeconds:  defaultEngineTimeout,
			BreakerFailures: defaultBreakerFailures,
		},
		Artifacts: Artifacts{
			ImageExtensions:      []string{defaultImageExtension},
			FeatureSuffix:        defaultFeatureSuffix,
			ImageListName:        defaultImageListName,
			IndexName:            defaultIndexName,
			GroundTruthName:      defaultGroundTruthName,
			RetrievalTraceSuffix: defaultRetrievalTraceSuffix,
			MatchTraceSuffix:     defaultMatchTraceSuffix,
			MetadataSuffix:       defaultMetadataSuffix,
		},
		Pipeline: Pipeline{
			Workers:       defaultWorkers(),
			SortImageList: true,
		},
		Render: Render{
			Columns: defaultRenderColumns,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultWorkers() int {
	if n := runtime.NumCPU() / 2; n > 1 {
		return n
	}
	return 1
}
