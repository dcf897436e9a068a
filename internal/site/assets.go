package site

// styleCSS is the base stylesheet served at /style.css.
const styleCSS = `body {
  max-width: 46em;
  margin: 0 auto;
  padding: 1em;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
  line-height: 1.6;
  color: #24292e;
}
a { color: #0366d6; text-decoration: none; }
a:hover { text-decoration: underline; }
.hide { display: none; }
.loading { color: #6a737d; font-style: italic; }
.page-header { padding: .5em 0; border-bottom: 1px solid #eaecef; }
.page-header .sep { color: #6a737d; }
.lead { color: #586069; font-size: .9em; }
.lead .tags a { margin-right: .4em; }
.comment-panel { margin-top: 2em; }
`

// markedCSS styles the rendered Markdown panel, the keyword tokens and the
// table of contents.
const markedCSS = `.marked-panel h1, .marked-panel h2 { border-bottom: 1px solid #eaecef; padding-bottom: .3em; }
.marked-panel pre { background: #f6f8fa; padding: 1em; overflow: auto; border-radius: 3px; }
.marked-panel code { font-family: SFMono-Regular, Consolas, Menlo, monospace; font-size: 85%; }
.marked-panel a.keyword {
  display: inline-block;
  margin: 0 .3em .3em 0;
  padding: 0 .6em;
  border: 1px solid #0366d6;
  border-radius: 1em;
  cursor: pointer;
}
.marked-panel a.keyword.selected { background: #0366d6; color: #fff; }
.marked-panel nav.toc { float: right; margin: 0 0 1em 1em; font-size: .85em; }
.marked-panel nav.toc ul { list-style: none; padding-left: 0; }
.marked-panel nav.toc li.h3 { padding-left: 1em; }
`
