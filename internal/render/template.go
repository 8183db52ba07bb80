package render

import "html/template"

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"score": formatScore,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Collection}} · {{.Query}}</title>
<style>
body { font-family: sans-serif; margin: 1.5em; }
table.grid { border-collapse: collapse; }
table.grid td { vertical-align: top; padding: 0.5em; border: 1px solid #ddd; width: {{.CellWidth}}%; }
table.grid img { max-width: 100%; max-height: 12em; display: block; }
.query img { max-height: 18em; }
.meta { font-size: 0.85em; color: #444; }
</style>
</head>
<body>
<h1>{{.Collection}}</h1>
<div class="query" data-query-image="{{.Query}}">
<img src="{{.QuerySrc}}" alt="{{.Query}}">
<p>{{len .Cells}} ranked matches for {{.Query}}</p>
</div>
<table class="grid" data-columns="{{.Columns}}">
{{- range .Rows}}
<tr>
{{- range .}}
<td class="match" data-rank-index="{{.RankIndex}}" data-related-image="{{.RelatedImage}}" data-matched-points="{{.MatchedPoints}}" data-custom-score="{{score .CustomScore}}" data-global-score="{{score .GlobalScore}}" data-final-score="{{score .FinalScore}}">
{{- if .URI}}
<a href="{{.URI}}"><img src="{{.Src}}" alt="{{.RelatedImage}}"></a>
{{- else}}
<img src="{{.Src}}" alt="{{.RelatedImage}}">
{{- end}}
{{- if .Title}}
<div class="title">{{.Title}}</div>
{{- end}}
<div class="meta">matched points: {{.MatchedPoints}}</div>
<div class="meta">custom {{score .CustomScore}} · global {{score .GlobalScore}} · final {{score .FinalScore}}</div>
</td>
{{- end}}
</tr>
{{- end}}
</table>
</body>
</html>
`))
