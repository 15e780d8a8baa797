package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatHandler answers the three prompt kinds with canned text chosen by prompt markers.
func chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid JSON body"}}`, http.StatusBadRequest)
		return
	}
	prompt := ""
	for _, m := range req.Messages {
		prompt += m.Content + "\n"
	}

	resp := chatResponse{
		ID:      fmt.Sprintf("demo-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: cannedAnswer(prompt)},
			FinishReason: "stop",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

var demoTags = []struct{ marker, tags string }{
	{"AI", "人工智慧, 醫療科技, 影像判讀"},
	{"冷鏈", "冷鏈物流, 生鮮電商, 倉儲"},
	{"無人機", "智慧農業, 無人機, 政府補助"},
	{"支付", "銀髮經濟, 行動支付, 金融科技"},
}

func cannedAnswer(prompt string) string {
	switch {
	case strings.Contains(prompt, "新聞標題"):
		for _, d := range demoTags {
			if strings.Contains(prompt, d.marker) {
				return d.tags
			}
		}
		return "產業趨勢, 新創機會"
	case strings.Contains(prompt, "魔鬼") || strings.Contains(prompt, "風險投資人"):
		return "🔥 第一批付費客戶從哪裡來？\n" +
			"🔥 既有業者為什麼不能明天就複製？\n" +
			"🔥 法規許可要多久？資金撐得到那天嗎？\n" +
			"🔥 單位經濟算過了嗎？\n" +
			"🔥 如果補助停了，商業模式還成立嗎？"
	default:
		return "點子名稱：跨界示範服務\n\n" +
			"概念說明：\n把兩則新聞中的技術與需求結合成一個訂閱服務。\n\n" +
			"目標客群：\n中小企業營運主管。\n\n" +
			"獲利模式：\n月費制，依使用量分級。\n\n" +
			"競爭優勢：\n整合兩個產業的資料與通路。\n\n" +
			"第一步行動：\n訪談五位潛在客戶驗證需求。"
	}
}
