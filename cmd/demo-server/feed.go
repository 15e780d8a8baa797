package main

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type demoArticle struct {
	title   string
	summary string // empty summaries make the fetcher extract the page text
	pubDate string
	body    string
}

var demoArticles = []demoArticle{
	{
		title:   "醫院導入 AI 影像判讀，放射科等待時間減半",
		summary: "多家醫學中心採用深度學習輔助判讀系統，急診影像報告平均等待時間從 40 分鐘降至 18 分鐘。",
		pubDate: "Mon, 01 Sep 2025 09:00:00 +0800",
		body:    "<p>導入 AI 輔助判讀後，放射科醫師能優先處理高風險影像。</p><p>院方表示下一步將整合病歷系統。</p>",
	},
	{
		title:   "冷鏈物流需求暴增，生鮮電商搶建區域倉",
		summary: "生鮮電商訂單年增三成，業者加速布局低溫倉儲與最後一哩配送。",
		pubDate: "Sun, 31 Aug 2025 14:30:00 +0800",
		body:    "<p>低溫倉儲成本居高不下，業者開始嘗試共享冷鏈車隊。</p>",
	},
	{
		title:   "農委會推智慧農業補助，無人機噴藥成主流",
		summary: "",
		pubDate: "Sat, 30 Aug 2025 08:15:00 +0800",
		body: "<p>今年智慧農業補助預算提高至十億元，無人機噴藥服務申請件數較去年成長兩倍。" +
			"農民表示，無人機能在半小時內完成過去需要一整天的噴藥作業，也降低了人員接觸農藥的風險。</p>" +
			"<p>業者預期明年將推出結合土壤感測與產量預測的訂閱服務。</p>",
	},
	{
		title:   "銀髮族數位支付使用率首度突破五成",
		summary: "調查顯示 65 歲以上族群使用行動支付比例達 52%，社區據點成為推廣關鍵。",
		pubDate: "Fri, 29 Aug 2025 19:45:00 +0800",
		body:    "<p>金融業者看好銀髮市場，推出大字版介面與家人代管功能。</p>",
	},
}

func rssHandler(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom"><channel>`)
	b.WriteString("<title>IdeaForge 示範新聞</title>")
	fmt.Fprintf(&b, "<link>%s/</link>", base)
	b.WriteString("<description>Mock news for trying IdeaForge offline</description>")
	fmt.Fprintf(&b, "<lastBuildDate>%s</lastBuildDate>", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, `<atom:link href="%s/rss" rel="self" type="application/rss+xml"/>`, base)
	for i, a := range demoArticles {
		b.WriteString("<item>")
		fmt.Fprintf(&b, "<title>%s</title>", escape(a.title))
		fmt.Fprintf(&b, "<link>%s/articles/%d</link>", base, i+1)
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", a.pubDate)
		fmt.Fprintf(&b, "<guid>demo-%d</guid>", i+1)
		if a.summary != "" {
			fmt.Fprintf(&b, "<description>%s</description>", escape(a.summary))
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(b.String()))
}

func articlesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/articles/"))
	if err != nil || id < 1 || id > len(demoArticles) {
		http.Error(w, fmt.Sprintf("Invalid article ID (use 1-%d)", len(demoArticles)), http.StatusBadRequest)
		return
	}
	a := demoArticles[id-1]
	page := `<!DOCTYPE html>
<html lang="zh-Hant">
<head>
    <meta charset="UTF-8">
    <title>%[1]s</title>
</head>
<body>
    <article>
        <h1>%[1]s</h1>
        %[2]s
    </article>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, escape(a.title), a.body)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
