package render

// ReportTemplate is the html/template source of the monitoring report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --ink: #22223b;
    --soft: #4a4e69;
    --line: #dcdde5;
    --brand: #d9480f;
    --brand-soft: #fff4e6;
    --up: #2b8a3e;
    --down: #c92a2a;
    --paper: #fcfcfd;
  }
  html { font-size: 15px; }
  body {
    font: 1rem/1.55 "Inter", "Helvetica Neue", Arial, sans-serif;
    color: var(--ink);
    background: var(--paper);
    width: min(960px, 100%);
    margin: 0 auto;
    padding: 24px 18px 40px;
    box-sizing: border-box;
  }
  h1 { font-size: 1.6rem; margin: 0; }
  h2 {
    font-size: 1.1rem;
    text-transform: uppercase;
    letter-spacing: .04em;
    color: var(--brand);
    margin: 32px 0 10px;
  }
  a { color: var(--brand); }
  .dim { color: var(--soft); font-size: .85rem; margin: 2px 0; }

  .banner {
    display: flex;
    flex-wrap: wrap;
    gap: 12px;
    justify-content: space-between;
    align-items: flex-end;
    padding: 18px 20px;
    background: var(--brand-soft);
    border-top: 4px solid var(--brand);
  }
  .banner .when { text-align: right; }

  .kpis {
    display: flex;
    flex-wrap: wrap;
    gap: 10px;
    margin: 14px 0;
  }
  .kpi {
    flex: 1 1 130px;
    border: 1px solid var(--line);
    border-radius: 6px;
    padding: 8px 10px;
    background: #fff;
  }
  .kpi span { display: block; font-size: .7rem; color: var(--soft); letter-spacing: .05em; }
  .kpi strong { font-size: 1.15rem; }
  .up { color: var(--up); }
  .down { color: var(--down); }

  .notice {
    margin: 12px 0;
    padding: 10px 14px;
    background: #fff9db;
    border: 1px solid #fcc419;
    border-radius: 6px;
  }

  table { width: 100%; border-collapse: collapse; font-size: .88rem; }
  thead th { text-align: left; border-bottom: 2px solid var(--ink); padding: 6px 8px; }
  tbody td { border-bottom: 1px solid var(--line); padding: 6px 8px; vertical-align: top; }
  tbody tr:nth-child(even) { background: #f6f6f9; }
  td.nowrap { white-space: nowrap; }

  figure { margin: 10px 0; overflow-x: auto; }
  figure svg { max-width: 100%; height: auto; }

  .narrative {
    white-space: pre-wrap;
    border-left: 3px solid var(--brand);
    padding: 4px 0 4px 14px;
  }

  footer {
    margin-top: 36px;
    font-size: .78rem;
    color: var(--soft);
    border-top: 1px solid var(--line);
    padding-top: 10px;
  }

  @media print {
    body { width: 100%; padding: 0; }
    section { break-inside: avoid; }
    .banner { border-top-width: 2px; }
  }
</style>
</head>
<body>

<header class="banner">
  <div>
    <h1>{{.Title}}</h1>
    <p class="dim">{{.Scope}}</p>
  </div>
  <div class="when">
    <p class="dim">{{.GeneratedAt}}</p>
    {{if .Elapsed}}<p class="dim">Recherche : {{.Elapsed}}</p>{{end}}
  </div>
</header>

<div class="kpis">
  <div class="kpi"><span>MENTIONS</span><strong>{{.Stats.TotalMentions}}</strong></div>
  <div class="kpi"><span>SOURCES UNIQUES</span><strong>{{.Insights.UniqueSources}}</strong></div>
  <div class="kpi"><span>PÉRIODE</span><strong>{{.Period}}</strong></div>
  <div class="kpi"><span>MOYENNE / AN</span><strong>{{.AveragePerYear}}</strong></div>
  <div class="kpi"><span>POSITIF</span><strong class="up">{{.Stats.Sentiment.Positive}}</strong></div>
  <div class="kpi"><span>NÉGATIF</span><strong class="down">{{.Stats.Sentiment.Negative}}</strong></div>
</div>

{{if .Failures}}
<div class="notice">
  <strong>Sources indisponibles :</strong>
  {{range .Failures}}<p>{{.}}</p>{{end}}
</div>
{{end}}

<section>
  <h2>Rapport</h2>
  {{if .ReportText}}
  <div class="narrative">{{.ReportText}}</div>
  {{else}}
  <div class="notice">{{.ReportNotice}}</div>
  {{end}}
</section>

<section>
  <h2>Évolution</h2>
  <figure>{{.TimelineChart}}</figure>
  <figure>{{.YearChart}}</figure>
</section>

<section>
  <h2>Sources</h2>
  <figure>{{.SourcesChart}}</figure>
  <figure>{{.DomainsChart}}</figure>
  <figure>{{.SentimentChart}}</figure>
</section>

{{if .Articles}}
<section>
  <h2>Articles ({{len .Articles}})</h2>
  <table>
    <thead><tr><th>Date</th><th>Source</th><th>Titre</th></tr></thead>
    <tbody>
    {{range .Articles}}
    <tr>
      <td class="nowrap">{{.Date}}</td>
      <td class="nowrap">{{.Source}}</td>
      <td>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</td>
    </tr>
    {{end}}
    </tbody>
  </table>
</section>
{{end}}

<footer>
  Rapport généré par ComTracker le {{.GeneratedAt}}. Le texte d'analyse est produit par un modèle de langage et doit être relu.
</footer>

</body>
</html>`
