package ticket

const extractionInstruction = `You extract flight booking details from airline e-mails.
Return ONLY a JSON object, no explanations, with exactly these keys:
{
  "airline": "airline name or empty string",
  "pnr": "booking reference / PNR code",
  "flight_date": "departure date as YYYY-MM-DD",
  "flight_time": "departure time as HH:MM (24h), empty string if unknown",
  "origin": "departure airport IATA code or city",
  "destination": "arrival airport IATA code or city",
  "passenger_name": "full name of the first passenger"
}
If the e-mail has several flights, use the first outbound segment.
Use empty strings for anything you cannot find. Do not invent values.

E-mail:
`

// BuildPrompt appends the raw e-mail text to the fixed instruction.
func BuildPrompt(emailText string) string {
	return extractionInstruction + emailText
}
