package gemini

import "google.golang.org/genai"

// responseSchema mirrors the leads.Result shape. Only mode is required at the
// top level; per-lead required fields match what downstream consumers rely on
// being present.
func responseSchema() *genai.Schema {
	socials := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"linkedin":  {Type: genai.TypeString},
			"instagram": {Type: genai.TypeString},
			"facebook":  {Type: genai.TypeString},
			"twitter":   {Type: genai.TypeString},
		},
	}

	keyPerson := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     {Type: genai.TypeString},
			"role":     {Type: genai.TypeString},
			"email":    {Type: genai.TypeString},
			"linkedin": {Type: genai.TypeString},
			"phone":    {Type: genai.TypeString},
		},
	}

	growthSignal := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"activity": {Type: genai.TypeString},
			"date":     {Type: genai.TypeString},
		},
	}

	briefing := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overview":   {Type: genai.TypeString},
			"background": {Type: genai.TypeString},
			"context":    {Type: genai.TypeString},
		},
		Required: []string{"overview", "background", "context"},
	}

	lead := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":             {Type: genai.TypeString},
			"description":      {Type: genai.TypeString},
			"industry":         {Type: genai.TypeString},
			"location":         {Type: genai.TypeString},
			"website":          {Type: genai.TypeString},
			"email":            {Type: genai.TypeString},
			"phone":            {Type: genai.TypeString},
			"socials":          socials,
			"keyPeople":        {Type: genai.TypeArray, Items: keyPerson},
			"growthSignals":    {Type: genai.TypeArray, Items: growthSignal},
			"matchScore":       {Type: genai.TypeNumber},
			"marketHeat":       {Type: genai.TypeNumber},
			"type":             {Type: genai.TypeString, Description: "person or company"},
			"detailedBriefing": briefing,
		},
		Required: []string{"name", "description", "matchScore", "marketHeat", "type", "detailedBriefing", "industry", "location"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"mode":                {Type: genai.TypeString},
			"summary":             {Type: genai.TypeString},
			"paragraphs":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"leads":               {Type: genai.TypeArray, Items: lead},
			"explanation":         {Type: genai.TypeString},
			"outOfContextMessage": {Type: genai.TypeString},
			"followUps":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"mode"},
	}
}
