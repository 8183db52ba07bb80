package engine

import "strconv"

// Settings carries the flags shared by every invocation.
type Settings struct {
	Mode       string
	ParamsFile string
	MatchType  int
	OneWay     bool
}

// ExtractArgs builds `extract <list> <mode> <dataset> <annotation> [-p params]`.
func (s Settings) ExtractArgs(imageList, datasetPath, annotationPath string) []string {
	args := []string{imageList, s.Mode, datasetPath, annotationPath}
	return s.appendParams(args)
}

// IndexArgs builds `makeIndex <list> <index> <mode> <dataset> <annotation>`.
func (s Settings) IndexArgs(imageList, index, datasetPath, annotationPath string) []string {
	return []string{imageList, index, s.Mode, datasetPath, annotationPath}
}

// MatchArgs builds `match <matching> <non-matching> <mode> <dataset> <annotation>
// [-t trace] [-o] [-m type] [-p params]`.
func (s Settings) MatchArgs(matchingPairs, nonMatchingPairs, datasetPath, annotationPath, trace string) []string {
	args := []string{matchingPairs, nonMatchingPairs, s.Mode, datasetPath, annotationPath}
	if trace != "" {
		args = append(args, "-t", trace)
	}
	if s.OneWay {
		args = append(args, "-o")
	}
	args = append(args, "-m", strconv.Itoa(s.MatchType))
	return s.appendParams(args)
}

// RetrieveArgs builds `retrieve <index> <ground-truth> <mode> <dataset>
// <annotation> [-t trace] [-p params]`.
func (s Settings) RetrieveArgs(index, groundTruth, datasetPath, annotationPath, trace string) []string {
	args := []string{index, groundTruth, s.Mode, datasetPath, annotationPath}
	if trace != "" {
		args = append(args, "-t", trace)
	}
	return s.appendParams(args)
}

func (s Settings) appendParams(args []string) []string {
	if s.ParamsFile == "" {
		return args
	}
	return append(args, "-p", s.ParamsFile)
}
