package classify

// Keyword tables, upper-case. Matching is substring containment against the
// upper-cased counterparty name.

var taxKeywords = []string{
	"GEORGIA ITS TAX", "GA DEPT OF LABOR",
	"BOYLE TAX", "SAVERITE TAX", "STATE OF TN",
	"DELAWARE CORP",
}

var emailInfraKeywords = []string{
	"BEANSTALK CONSULTING", "INBOXKIT", "PREMIUM INBOX",
	"MISSION INBOX", "OUTBOUNDSYNC", "COLDEMAILDOMAINS",
	"BOUNCEBAN", "MAILTESTER",
}

var travelKeywords = []string{
	"AIRLINE", "DELTA AIR", "UNITED AIR", "AMERICAN AIR", "SOUTHWEST",
	"TURKISH AIR", "HOTEL", "MARRIOTT", "HILTON", "AIRBNB", "UBER",
	"LYFT", "WAYMO", "TRAVELURO", "HOTELS.COM", "THE PEARL",
	"DIPLOMAT", "RITZ-CARLTON", "CANOPY BY HILTON", "MOTTO BY HILTON",
	"PARKING", "OWLPARKING", "12 OAKS",
}

var techVendorKeywords = []string{
	"GROWTHX", "STRIPE", "OPENAI", "OPEN AI", "CHATGPT", "ANTHROPIC",
	"CLAUDE", "LOVABLE", "MANUS", "GITHUB", "GOOGLE", "MICROSOFT",
	"AMAZON WEB", "AWS", "HEROKU", "VERCEL", "NETLIFY", "DIGITAL OCEAN",
	"CLOUDFLARE", "SLACK", "NOTION", "FIGMA", "CANVA", "HUBSPOT",
	"SALESFORCE", "ZAPIER", "AIRTABLE", "CLICKUP", "ZOOM", "LOOM",
	"LINKEDIN", "FACEBOOK", "FACEBK", "CLAY LABS", "INSTANTLY",
	"HEYREACH", "FIREFLIES", "PANDADOC", "MIRO", "CALENDLY",
	"ATLASSIAN", "BEEHIIV", "MAKE", "WISPR", "SUPERMETRICS",
	"QUICKBOOKS", "1PASSWORD", "SUPABASE", "CURSOR", "APIFY",
	"RAILWAY", "GAMMA", "TELLA", "WP ENGINE", "PORTER METRICS",
	"PERPLEXITY", "SQUARESPACE", "BOOMERANG", "RIVERSIDE",
	"CHECKR", "NAMECHEAP", "PERSONA", "PORKBUN", "SERPER",
	"OTTERAD", "TRADEMIMIC", "KIIN", "ENRICH LABS", "KS-MEDIA",
	"STORE LEADS", "TEAMFLUENCE", "LEADSFRIDAY", "LEADWAVE",
	"AMPLELEADS", "LEADS ON TREES", "FOLLOWINGG", "ENGAGERS",
	"AI ARK", "TRYKITT", "OVERVUE", "UPSCALE SYSTEMS",
	"SALES AUTOMATION", "THEIRSTACK", "MERGR", "LEADASSIST",
	"DEMANDGEN", "AI.FYXER", "SUPERHOG", "AMAZON PRIME",
	"VIASAT", "FIBBLER", "OCTAVE",
}

var laborKeywords = []string{
	"FUELFINANCE", "AUTOMATEDEMAND", "FANBASIS", "PAYONEER",
	"REVPARTNERS", "VIVA GROWTH", "CHITLANGIA", "NOAH GREEN",
	"COASTAL-COLLECTIVE", "LA WHENCE",
}
